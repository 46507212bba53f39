package kverrors

import (
	"errors"
	"testing"
)

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		Ok:                   "Ok",
		OutOfMemory:          "OutOfMemory",
		InvalidArgument:      "InvalidArgument",
		NotFound:             "NotFound",
		TransactionConflict:  "TransactionConflict",
		ExtractorFailure:     "ExtractorFailure",
		Unsupported:          "Unsupported",
		Kind(99):             "Kind(99)",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}

func TestNewIsNotRowScoped(t *testing.T) {
	err := New(NotFound, "missing key")
	if err.Row != -1 {
		t.Fatalf("Row = %d, want -1", err.Row)
	}
	if err.Error() != "NotFound: missing key" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestNewfFormats(t *testing.T) {
	err := Newf(InvalidArgument, "key %d out of range", 7)
	if err.Message != "key 7 out of range" {
		t.Fatalf("Message = %q", err.Message)
	}
}

func TestAtRowIncludesRowInMessage(t *testing.T) {
	err := AtRow(ExtractorFailure, 3, "parse error")
	want := "ExtractorFailure: parse error (row 3)"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapPreservesUnwrapChain(t *testing.T) {
	inner := errors.New("disk full")
	wrapped := Wrap(OutOfMemory, inner)
	if !errors.Is(wrapped, inner) {
		t.Fatal("errors.Is should see through Wrap to the inner error")
	}
	if wrapped.Kind != OutOfMemory {
		t.Fatalf("Kind = %v, want OutOfMemory", wrapped.Kind)
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if Wrap(NotFound, nil) != nil {
		t.Fatal("Wrap(kind, nil) should return nil")
	}
}

func TestKindOfPlainErrorIsUnsupported(t *testing.T) {
	base := New(TransactionConflict, "conflict")
	wrapped := errors.New("context: " + base.Error())
	if KindOf(wrapped) != Unsupported {
		t.Fatalf("KindOf(plain errors.New) = %v, want Unsupported (not an *Error)", KindOf(wrapped))
	}
	if KindOf(base) != TransactionConflict {
		t.Fatalf("KindOf(*Error) = %v, want TransactionConflict", KindOf(base))
	}
}

func TestKindOfReportsOutermostKind(t *testing.T) {
	inner := New(Unsupported, "nope")
	outer := Wrap(InvalidArgument, inner)
	// outer itself carries InvalidArgument; KindOf should report the
	// outermost Kind, not unwrap past the first *Error it finds.
	if KindOf(outer) != InvalidArgument {
		t.Fatalf("KindOf(outer) = %v, want InvalidArgument", KindOf(outer))
	}
}
