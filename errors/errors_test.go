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
				Kind:   KindNotEnoughInput,
				Path:   []Location{Field("zip"), Field("address"), Field("user")},
				Detail: "need 4 more byte(s), have 2",
			},
			contains: []string{"not_enough_input", "user.address.zip", "need 4 more byte(s)"},
		},
		{
			name: "minimal error",
			err: &Error{
				Kind: KindInvalidStr,
			},
			contains: []string{"invalid_str"},
		},
		{
			name: "error with cause",
			err: &Error{
				Kind:   KindCustom,
				Detail: "visitor rejected value",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"custom", "visitor rejected value", "caused by", "underlying error"},
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

func TestError_PathString(t *testing.T) {
	// Frames attach innermost first while an error unwinds; rendering must
	// read root first.
	err := NotEnoughInput(1, 0).
		AtField("value").
		AtVariant("Some").
		AtIndex(2).
		AtField("args")

	want := "args.[2].(Some).value"
	if got := err.PathString(); got != want {
		t.Errorf("PathString() = %q, want %q", got, want)
	}
	if !strings.Contains(err.Error(), " at "+want+": ") {
		t.Errorf("Error() = %q, should contain path %q", err.Error(), want)
	}
}

func TestError_EmptyPath(t *testing.T) {
	err := TypeNotFound(9)
	if strings.Contains(err.Error(), " at ") {
		t.Errorf("Error() = %q, should not contain a path clause", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Kind:  KindCustom,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	// Test with errors.Unwrap
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Kind: KindVariantNotFound,
		Path: []Location{Field("foo")},
	}

	// Same kind
	if !err.Is(&Error{Kind: KindVariantNotFound}) {
		t.Error("Is should match same kind")
	}

	// Different kind
	if err.Is(&Error{Kind: KindTypeNotFound}) {
		t.Error("Is should not match different kind")
	}

	// Test with errors.Is
	target := &Error{Kind: KindVariantNotFound}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestAt_ForeignError(t *testing.T) {
	cause := errors.New("boom")
	err := At(cause, Field("payload"))

	if err.Kind != KindCustom {
		t.Errorf("Kind = %v, want %v", err.Kind, KindCustom)
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error should still match its cause")
	}
	if got := err.PathString(); got != "payload" {
		t.Errorf("PathString() = %q, want \"payload\"", got)
	}

	// An *Error passes through without re-wrapping.
	inner := NotEnoughInput(2, 0)
	if got := At(inner, Index(1)); got != inner {
		t.Error("At should not re-wrap an *Error")
	}
}

func TestIsKind(t *testing.T) {
	err := NotEnoughInput(8, 3).AtField("hash")

	if !IsKind(err, KindNotEnoughInput) {
		t.Error("IsKind should match the error's kind")
	}
	if IsKind(err, KindInvalidStr) {
		t.Error("IsKind should not match a different kind")
	}
	if IsKind(nil, KindNotEnoughInput) {
		t.Error("IsKind(nil) should be false")
	}

	// Through a Custom wrapper.
	wrapped := Custom(NotEnoughInput(1, 0))
	if !IsKind(wrapped, KindNotEnoughInput) {
		t.Error("IsKind should see through Custom wrapping")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(KindWrongLength).
		Value(3).
		Cause(cause).
		Detail("value has %d item(s), target wants %d", 3, 4).
		Build()

	if err.Kind != KindWrongLength {
		t.Errorf("Kind = %v, want %v", err.Kind, KindWrongLength)
	}
	if err.Value != 3 {
		t.Errorf("Value = %v, want 3", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "value has 3 item(s), target wants 4" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("NotEnoughInput", func(t *testing.T) {
		err := NotEnoughInput(16, 4)
		if err.Kind != KindNotEnoughInput {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotEnoughInput)
		}
		if !strings.Contains(err.Detail, "16") || !strings.Contains(err.Detail, "4") {
			t.Errorf("Detail = %v, should contain counts", err.Detail)
		}
	})

	t.Run("InvalidStr", func(t *testing.T) {
		err := InvalidStr([]byte{0xff, 0xfe})
		if err.Kind != KindInvalidStr {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidStr)
		}
		if !strings.Contains(err.Detail, "fffe") {
			t.Errorf("Detail = %v, should preview the bytes", err.Detail)
		}
	})

	t.Run("InvalidChar", func(t *testing.T) {
		err := InvalidChar(0xD800)
		if err.Kind != KindInvalidChar {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidChar)
		}
		if err.Value != uint32(0xD800) {
			t.Errorf("Value = %v, want 0xD800", err.Value)
		}
	})

	t.Run("TypeNotFound", func(t *testing.T) {
		err := TypeNotFound(42)
		if err.Kind != KindTypeNotFound {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTypeNotFound)
		}
		if err.Value != uint32(42) {
			t.Errorf("Value = %v, want 42", err.Value)
		}
	})

	t.Run("VariantNotFound", func(t *testing.T) {
		err := VariantNotFound(5, "Option")
		if err.Kind != KindVariantNotFound {
			t.Errorf("Kind = %v, want %v", err.Kind, KindVariantNotFound)
		}
		if err.Value != uint8(5) {
			t.Errorf("Value = %v, want 5", err.Value)
		}
		if !strings.Contains(err.Detail, "Option") {
			t.Errorf("Detail = %v, should name the type", err.Detail)
		}
	})

	t.Run("FieldNotFound", func(t *testing.T) {
		err := FieldNotFound("name")
		if err.Kind != KindFieldNotFound {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFieldNotFound)
		}
	})

	t.Run("WrongLength", func(t *testing.T) {
		err := WrongLength(3, 4)
		if err.Kind != KindWrongLength {
			t.Errorf("Kind = %v, want %v", err.Kind, KindWrongLength)
		}
	})

	t.Run("NumberOutOfRange", func(t *testing.T) {
		err := NumberOutOfRange(300, "u8")
		if err.Kind != KindNumberOutOfRange {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNumberOutOfRange)
		}
		if err.Value != 300 {
			t.Errorf("Value = %v, want 300", err.Value)
		}
	})

	t.Run("StoreNotSupported", func(t *testing.T) {
		err := StoreNotSupported("u128")
		if err.Kind != KindStoreNotSupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindStoreNotSupported)
		}
	})

	t.Run("OrderNotSupported", func(t *testing.T) {
		err := OrderNotSupported("Weird0")
		if err.Kind != KindOrderNotSupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOrderNotSupported)
		}
	})

	t.Run("CompactNotSupported", func(t *testing.T) {
		err := CompactNotSupported("bool")
		if err.Kind != KindCompactNotSupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindCompactNotSupported)
		}
	})

	t.Run("UnexpectedType", func(t *testing.T) {
		err := UnexpectedType("str")
		if err.Kind != KindUnexpected {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnexpected)
		}
		if !strings.Contains(err.Error(), "unexpected str") {
			t.Errorf("Error() = %q, want mention of the shape", err.Error())
		}
	})
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		loc  Location
		want string
	}{
		{Field("balance"), "balance"},
		{Index(7), "[7]"},
		{Variant("Ok"), "(Ok)"},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("Location.String() = %q, want %q", got, tt.want)
		}
	}
}
