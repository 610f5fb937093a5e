package errs

import (
	"errors"
	"log/slog"
	"testing"
)

func TestWrapPreservesChain(t *testing.T) {
	root := errors.New("root")
	err := Wrapf(Wrap(root, "inner"), "outer %d", 7)
	if !errors.Is(err, root) {
		t.Fatalf("errors.Is() = false for %v", err)
	}
	if err.Error() != "outer 7: inner: root" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if Wrap(nil, "x") != nil || Wrapf(nil, "x") != nil || WithStack(nil) != nil {
		t.Fatalf("nil errors must stay nil")
	}
}

func TestWithStackCapturesOnce(t *testing.T) {
	err := WithStack(errors.New("root"))
	again := WithStack(Wrap(err, "ctx"))
	var se *StackError
	if !errors.As(again, &se) || len(se.Stack()) == 0 {
		t.Fatalf("stack not found in %v", again)
	}
	if se != err {
		t.Fatalf("WithStack() captured a second stack")
	}
}

func TestErrorChainStringsWalksJoinedErrors(t *testing.T) {
	a := errors.New("commit failed")
	b := errors.New("rollback failed")
	err := Wrap(errors.Join(a, b), "finalize")

	chain := ErrorChainStrings(err)
	if len(chain) != 4 {
		t.Fatalf("ErrorChainStrings() = %q, want 4 entries", chain)
	}
	if chain[2] != "commit failed" || chain[3] != "rollback failed" {
		t.Fatalf("ErrorChainStrings() = %q", chain)
	}
}

func TestLoggableGroupsFields(t *testing.T) {
	v := Loggable(Wrap(errors.New("root"), "ctx")).LogValue()
	if v.Kind() != slog.KindGroup {
		t.Fatalf("LogValue() kind = %s", v.Kind())
	}
	attrs := v.Group()
	if len(attrs) != 3 {
		t.Fatalf("LogValue() attrs = %v", attrs)
	}
	if attrs[2].Key != "root_type" || attrs[2].Value.String() != "*errors.errorString" {
		t.Fatalf("root_type attr = %v", attrs[2])
	}
}
