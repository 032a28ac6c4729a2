package errors

import (
	"testing"
)

func TestCodedError(t *testing.T) {
	msg := "First argument is incorrect"
	e := Errorc(IllegalArgumentError, msg)
	if c := CodeOf(e); c != IllegalArgumentError {
		t.Errorf("Expected = %d return = %d", IllegalArgumentError, c)
	}
}

func TestWithCode(t *testing.T) {
	codes := []Code{
		IllegalArgumentError, UnsupportedError,
	}
	tests := []struct {
		name string
		err  error
	}{
		{"Errorc", Errorc(UnsupportedError, "Unsupported")},
		{"WithStack", WithStack(Errorc(UnsupportedError, "Unsupported"))},
		{"WithCode", WithCode(Errorc(UnsupportedError, "Unsupported"), IllegalArgumentError)},
		{"NewBase", NewBase(UnsupportedError, "Unsupported")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, c := range codes {
				e2 := WithCode(tt.err, c)
				if c2 := CodeOf(e2); c2 != c {
					t.Errorf("Returned code=%d exp=%d", c2, c)
				}
			}
		})
	}
}

func TestWrapc(t *testing.T) {
	origin := Errorc(NotFoundError, "NoEntry")
	e := Wrapc(origin, InvalidStateError, "StateBroken")
	if c := CodeOf(e); c != InvalidStateError {
		t.Errorf("Returned code=%d exp=%d", c, InvalidStateError)
	}
	if Unwrap(e) != origin {
		t.Error("Unwrap should return the origin")
	}
}
