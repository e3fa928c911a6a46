package fileserve

import "fmt"

// Kind classifies failures surfaced to the error continuation.
type Kind int

const (
	// KindStat is a stat failure other than "does not exist", such as a
	// permission error.
	KindStat Kind = iota
	// KindDirectoryAccess is a failure to list a directory during implicit
	// index lookup.
	KindDirectoryAccess
	// KindStream is an I/O failure while opening or transferring file bytes.
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindStat:
		return "stat"
	case KindDirectoryAccess:
		return "directory access"
	case KindStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Error is the failure type handed to the error continuation.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fileserve: %s failure for %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
