package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseEncode,
				Kind:   KindUnsupportedEncoding,
				Path:   []string{"pointer_move", "x"},
				Type:   "string",
				Detail: "field values must be numeric",
			},
			contains: []string{"[encode]", "unsupported_encoding", "pointer_move.x", "type string", "must be numeric"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseMemory,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[memory]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseAlloc,
				Kind:   KindAllocation,
				Detail: "guest heap exhausted",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[alloc]", "allocation", "guest heap exhausted", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindOutOfBounds,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseHandle,
		Kind:  KindInvalidHandle,
		Path:  []string{"texture"},
	}

	if !err.Is(&Error{Phase: PhaseHandle, Kind: KindInvalidHandle}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindInvalidHandle}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseHandle, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}
	if err.Is(errors.New("plain")) {
		t.Error("Is should not match non-structured errors")
	}
}

func TestSentinels(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
	}{
		{InvalidHandle("socket", 3), ErrInvalidHandle},
		{OutOfBounds(PhaseMemory, 10, 4, 12), ErrOutOfBounds},
		{OutOfBounds(PhaseInput, 10, 4, 12), ErrOutOfBounds},
		{InvalidUTF8(PhaseEncode, []byte{0xff}), ErrUnsupportedEncoding},
		{Unsupported(PhaseFormat, nil, "i64", "not a bridge primitive"), ErrUnsupportedEncoding},
		{AllocationFailed(16, nil), ErrAllocation},
		{Closed(PhaseHandle, "table"), ErrClosed},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
		})
	}

	if errors.Is(InvalidHandle("socket", 3), ErrOutOfBounds) {
		t.Error("invalid_handle must not match out_of_bounds")
	}
}

func TestSentinels_Wrapped(t *testing.T) {
	inner := OutOfBounds(PhaseMemory, 0, 8, 4)
	outer := Wrap(PhaseInput, KindIO, inner, "flush")
	if !errors.Is(outer, ErrOutOfBounds) {
		t.Error("errors.Is should find out_of_bounds through the cause chain")
	}

	var structured *Error
	if !errors.As(outer, &structured) || structured.Kind != KindIO {
		t.Errorf("errors.As returned %v", structured)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseEncode, KindUnsupportedEncoding).
		Path("key", "code").
		Type("string").
		Value("abc").
		Cause(cause).
		Detail("expected %s, got %s", "number", "string").
		Build()

	if err.Phase != PhaseEncode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseEncode)
	}
	if err.Kind != KindUnsupportedEncoding {
		t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupportedEncoding)
	}
	if len(err.Path) != 2 || err.Path[0] != "key" || err.Path[1] != "code" {
		t.Errorf("Path = %v, want [key code]", err.Path)
	}
	if err.Type != "string" {
		t.Errorf("Type = %v, want 'string'", err.Type)
	}
	if err.Value != "abc" {
		t.Errorf("Value = %v, want abc", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected number, got string" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("InvalidHandle", func(t *testing.T) {
		err := InvalidHandle("texture", 7)
		if err.Kind != KindInvalidHandle || err.Phase != PhaseHandle {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
		if err.Value != uint32(7) {
			t.Errorf("Value = %v, want 7", err.Value)
		}
		if !strings.Contains(err.Error(), "texture") {
			t.Errorf("message %q should name the category", err.Error())
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseDecode, 65530, 12, 65536)
		if !strings.Contains(err.Detail, "65542") || !strings.Contains(err.Detail, "65536") {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("InvalidUTF8 preview is capped", func(t *testing.T) {
		data := make([]byte, 100)
		for i := range data {
			data[i] = 0xff
		}
		err := InvalidUTF8(PhaseEncode, data)
		if len(err.Detail) > 100 {
			t.Errorf("Detail too long: %d", len(err.Detail))
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(1024, errors.New("oom"))
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
		if err.Cause == nil {
			t.Error("cause dropped")
		}
	})

	t.Run("Fields", func(t *testing.T) {
		if FieldMissing(PhaseEncode, []string{"move"}, "x").Kind != KindFieldMissing {
			t.Error("FieldMissing kind")
		}
		if FieldUnknown(PhaseEncode, []string{"move"}, "z").Kind != KindFieldUnknown {
			t.Error("FieldUnknown kind")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseHost, "format", "pointer_move")
		if !strings.Contains(err.Error(), `"pointer_move"`) {
			t.Errorf("message = %q", err.Error())
		}
	})

	t.Run("Instantiation", func(t *testing.T) {
		err := Instantiation(errors.New("bad magic"))
		if err.Phase != PhaseLoad || err.Kind != KindInstantiation {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})
}
