package kernel

// Status is the result code returned by kernel primitive calls.
//
// Values match the firmware's status enumeration so bindings can pass them through unchanged.
type Status int32

const (
	StatusOK             Status = 0
	StatusError          Status = -1
	StatusErrorTimeout   Status = -2
	StatusErrorResource  Status = -3
	StatusErrorParameter Status = -4
	StatusErrorNoMemory  Status = -5
	StatusErrorISR       Status = -6
)

// OK reports whether the call succeeded.
func (s Status) OK() bool { return s == StatusOK }

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	case StatusErrorTimeout:
		return "timeout"
	case StatusErrorResource:
		return "resource unavailable"
	case StatusErrorParameter:
		return "invalid parameter"
	case StatusErrorNoMemory:
		return "out of memory"
	case StatusErrorISR:
		return "not allowed in ISR context"
	default:
		return "unknown"
	}
}
