package xmlstreamer

import "testing"

func TestErrorMessageFormat(t *testing.T) {
	err := newError(ErrMissingNamespace, "undeclared prefix %q", "ns")
	want := `missing namespace: undeclared prefix "ns"`
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestErrorIsMatchesByKind(t *testing.T) {
	a := newError(ErrMalformed, "first detail")
	b := newError(ErrMalformed, "second, different detail")
	if !a.Is(b) {
		t.Error("expected two *Error values with the same Kind to match via Is")
	}

	c := newError(ErrInvalidElementClosed, "mismatch")
	if a.Is(c) {
		t.Error("expected different Kinds to not match via Is")
	}
}

func TestErrorKindString(t *testing.T) {
	cases := map[ErrorKind]string{
		ErrMalformed:            "malformed",
		ErrMissingNamespace:     "missing namespace",
		ErrInvalidElementClosed: "invalid element closed",
		ErrInvalidEncoding:      "invalid encoding",
	}
	for kind, want := range cases {
		if kind.String() != want {
			t.Errorf("kind %d: expected %q, got %q", kind, want, kind.String())
		}
	}
}
