package kernel

import "testing"

func TestKernelError(t *testing.T) {
	err := &Error{
		Module:  "foo",
		Message: "error message",
	}

	if err.Error() != err.Message {
		t.Fatalf("expected to err.Error() to return %q; got %q", err.Message, err.Error())
	}
}

func TestErrorKind(t *testing.T) {
	specs := []struct {
		kind     ErrorKind
		expName  string
		expFatal bool
	}{
		{ConfigurationError, "configuration error", true},
		{ResourceExhausted, "resource exhausted", true},
		{MappingConflict, "mapping conflict", false},
		{DoubleFree, "double free", false},
		{HardwareError, "hardware error", true},
		{InvalidArgument, "invalid argument", false},
		{ErrorKind(255), "unknown", true},
	}

	for specIndex, spec := range specs {
		if got := spec.kind.String(); got != spec.expName {
			t.Errorf("[spec %d] expected kind name to be %q; got %q", specIndex, spec.expName, got)
		}

		err := &Error{Module: "test", Kind: spec.kind, Message: "msg"}
		if got := err.Fatal(); got != spec.expFatal {
			t.Errorf("[spec %d] expected Fatal() to return %t; got %t", specIndex, spec.expFatal, got)
		}
	}
}
