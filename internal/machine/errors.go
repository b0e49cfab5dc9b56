package machine

import "fmt"

// Kind names the error categories from §7.
type Kind int

const (
	InvalidROM Kind = iota
	InvalidROMSize
	UnimplementedOpcode
	FetchOutOfRange
)

func (k Kind) String() string {
	switch k {
	case InvalidROM:
		return "InvalidROM"
	case InvalidROMSize:
		return "InvalidROMSize"
	case UnimplementedOpcode:
		return "UnimplementedOpcode"
	case FetchOutOfRange:
		return "FetchOutOfRange"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause (if any) with one of the Kind values, the
// way the top-level CLI reports a one-line diagnostic on load failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }
