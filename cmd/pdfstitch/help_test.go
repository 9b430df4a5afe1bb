package main

import (
	"bytes"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// TestRunHelp - Per-command help
// ---------------------------------------------------------------------------

func TestRunHelp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
	}{
		{"no topic", nil, ExitSuccess, "Usage: pdfstitch <command>"},
		{"convert", []string{"convert"}, ExitSuccess, "--resize"},
		{"serve", []string{"serve"}, ExitSuccess, "POST /stitch"},
		{"doctor", []string{"doctor"}, ExitSuccess, "--json"},
		{"version", []string{"version"}, ExitSuccess, "pdfstitch version"},
		{"help", []string{"help"}, ExitSuccess, "pdfstitch help [command]"},
		{"unknown", []string{"bogus"}, ExitUsage, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			env := &Environment{Stdout: &stdout, Stderr: &stderr}

			if code := runHelp(tt.args, env); code != tt.wantCode {
				t.Errorf("runHelp(%v) = %d, want %d", tt.args, code, tt.wantCode)
			}
			if !strings.Contains(stdout.String(), tt.wantStdout) {
				t.Errorf("stdout = %q, want substring %q", stdout.String(), tt.wantStdout)
			}
		})
	}
}

func TestPrintUsage_ListsCommands(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printUsage(&buf)
	for _, cmd := range []string{"convert", "serve", "doctor", "version", "help"} {
		if !strings.Contains(buf.String(), "  "+cmd) {
			t.Errorf("usage does not list %q", cmd)
		}
	}
}
