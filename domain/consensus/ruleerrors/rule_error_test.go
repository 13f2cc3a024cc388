package ruleerrors

import (
	"errors"
	"testing"

	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	pkgerrors "github.com/pkg/errors"
)

func TestNewErrMismatchedMmrSize(t *testing.T) {
	outer := NewErrMismatchedMmrSize(externalapi.MmrTreeKernel, 7, 5)
	expectedOuterErr := "ErrMismatchedMmrSize: Kernel MMR size mismatch: expected 7, header commits to 5"
	inner := &ErrMismatchedMmrSize{}
	if !errors.As(outer, inner) {
		t.Fatal("TestNewErrMismatchedMmrSize: Outer should contain ErrMismatchedMmrSize in it")
	}
	if inner.Tree != externalapi.MmrTreeKernel || inner.Expected != 7 || inner.Actual != 5 {
		t.Fatalf("TestNewErrMismatchedMmrSize: Unexpected inner error: %+v", inner)
	}

	rule := &RuleError{}
	if !errors.As(outer, rule) {
		t.Fatal("TestNewErrMismatchedMmrSize: Outer should contain RuleError in it")
	}
	if rule.message != "ErrMismatchedMmrSize" {
		t.Fatalf("TestNewErrMismatchedMmrSize: Expected message = 'ErrMismatchedMmrSize', found: '%s'", rule.message)
	}
	if outer.Error() != expectedOuterErr {
		t.Fatalf("TestNewErrMismatchedMmrSize: Expected %s. found: %s", expectedOuterErr, outer.Error())
	}
}

func TestNewErrInvalidMmrRoot(t *testing.T) {
	outer := NewErrInvalidMmrRoot(externalapi.MmrTreeUtxo, 2)
	inner := &ErrInvalidMmrRoot{}
	if !errors.As(outer, inner) {
		t.Fatal("TestNewErrInvalidMmrRoot: Outer should contain ErrInvalidMmrRoot in it")
	}
	if inner.Tree != externalapi.MmrTreeUtxo || inner.Height != 2 {
		t.Fatalf("TestNewErrInvalidMmrRoot: Unexpected inner error: %+v", inner)
	}
	mismatched := &ErrMismatchedMmrRoots{}
	if errors.As(outer, mismatched) {
		t.Fatal("TestNewErrInvalidMmrRoot: Outer shouldn't contain ErrMismatchedMmrRoots in it")
	}
}

func TestWrappedRuleErrorIs(t *testing.T) {
	wrapped := pkgerrors.Wrapf(ErrNoCutThrough, "output %s is also spent", "abcd")
	if !errors.Is(wrapped, ErrNoCutThrough) {
		t.Fatal("TestWrappedRuleErrorIs: Wrapped error should be ErrNoCutThrough")
	}
	if errors.Is(wrapped, ErrDuplicateTxo) {
		t.Fatal("TestWrappedRuleErrorIs: Wrapped error shouldn't be ErrDuplicateTxo")
	}
	rule := &RuleError{}
	if !errors.As(wrapped, rule) {
		t.Fatal("TestWrappedRuleErrorIs: Wrapped error should contain RuleError in it")
	}
}
