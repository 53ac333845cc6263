package kernel

// ErrorKind classifies a kernel error so callers can decide whether the
// condition is fatal without comparing against every error variable.
type ErrorKind uint8

const (
	// ConfigurationError is reported when the values handed over by the
	// bootloader describe an impossible machine.
	ConfigurationError ErrorKind = iota

	// ResourceExhausted is reported when a mandatory allocation cannot be
	// satisfied.
	ResourceExhausted

	// MappingConflict is reported when a virtual page is already mapped to
	// a different physical frame.
	MappingConflict

	// DoubleFree is reported when a frame that is already free gets released.
	DoubleFree

	// HardwareError is reported by device collaborators that fail to
	// initialize.
	HardwareError

	// InvalidArgument is reported when a caller passes a value the callee
	// does not manage, e.g. a frame outside the allocatable regions.
	InvalidArgument
)

var kindNames = [...]string{
	ConfigurationError: "configuration error",
	ResourceExhausted:  "resource exhausted",
	MappingConflict:    "mapping conflict",
	DoubleFree:         "double free",
	HardwareError:      "hardware error",
	InvalidArgument:    "invalid argument",
}

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Error describes a kernel error. All kernel errors must be defined as global
// variables that are pointers to the Error structure. This requirement stems
// from the fact that the Go allocator is not available to us so we cannot use
// errors.New.
type Error struct {
	// The module where the error occurred.
	Module string

	// Kind classifies the error.
	Kind ErrorKind

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Fatal returns true if the error leaves the kernel in a state it cannot
// continue from when raised during initialization.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case MappingConflict, DoubleFree, InvalidArgument:
		return false
	default:
		return true
	}
}
