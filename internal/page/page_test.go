package page

import (
	"errors"
	"slices"
	"testing"
)

func seq(dims ...[2]int) Sequence {
	s := make(Sequence, len(dims))
	for i, d := range dims {
		s[i] = Image{Ordinal: i + 1, Path: "p" + string(rune('a'+i)), Width: d[0], Height: d[1]}
	}
	return s
}

func TestSequence_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		seq     Sequence
		wantErr error
	}{
		{"valid single", seq([2]int{10, 20}), nil},
		{"valid three", seq([2]int{800, 1100}, [2]int{1000, 1200}, [2]int{900, 1050}), nil},
		{"empty", Sequence{}, ErrEmptySequence},
		{"nil", nil, ErrEmptySequence},
		{"starts at two", Sequence{{Ordinal: 2, Width: 1, Height: 1}}, ErrOrdinalGap},
		{"gap", Sequence{{Ordinal: 1, Width: 1, Height: 1}, {Ordinal: 3, Width: 1, Height: 1}}, ErrOrdinalGap},
		{"duplicate", Sequence{{Ordinal: 1, Width: 1, Height: 1}, {Ordinal: 1, Width: 1, Height: 1}}, ErrDuplicateOrdinal},
		{"descending", Sequence{{Ordinal: 2, Width: 1, Height: 1}, {Ordinal: 1, Width: 1, Height: 1}}, ErrOrdinalGap},
		{"zero width", seq([2]int{0, 10}), ErrInvalidDimensions},
		{"negative height", seq([2]int{10, -1}), ErrInvalidDimensions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.seq.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSequence_Geometry(t *testing.T) {
	t.Parallel()

	s := seq([2]int{800, 1100}, [2]int{1000, 1200}, [2]int{900, 1050})
	if got := s.MaxWidth(); got != 1000 {
		t.Errorf("MaxWidth() = %d, want 1000", got)
	}
	if got := s.TotalHeight(); got != 3350 {
		t.Errorf("TotalHeight() = %d, want 3350", got)
	}
	if got := s.Paths(); !slices.Equal(got, []string{"pa", "pb", "pc"}) {
		t.Errorf("Paths() = %v", got)
	}
}

func TestSequence_ValidateOrderIgnoresDimensions(t *testing.T) {
	t.Parallel()

	s := Sequence{{Ordinal: 1}, {Ordinal: 2}}
	if err := s.ValidateOrder(); err != nil {
		t.Errorf("ValidateOrder() = %v, want nil", err)
	}
	if err := s.Validate(); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Validate() = %v, want ErrInvalidDimensions", err)
	}
}
