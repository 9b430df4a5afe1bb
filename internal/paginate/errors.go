package paginate

import "errors"

// Sentinel errors for pagination.
var (
	ErrUnsupportedSource = errors.New("unsupported source document")
	ErrPagination        = errors.New("pagination failed")
	ErrBrowserConnect    = errors.New("failed to connect to browser")
	ErrInvalidPageSize   = errors.New("invalid page size")
	ErrInvalidMargin     = errors.New("invalid margin")
)
