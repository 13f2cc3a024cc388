package ruleerrors

import (
	"fmt"

	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// These constants are used to identify a specific RuleError.
var (
	// ErrBlockTooLarge indicates the body weight of a block exceeds the
	// maximum allowed at its height.
	ErrBlockTooLarge = newRuleError("ErrBlockTooLarge")

	// ErrUnsortedOrDuplicateInputs indicates the inputs of a body are
	// not in canonical order or contain a duplicate.
	ErrUnsortedOrDuplicateInputs = newRuleError("ErrUnsortedOrDuplicateInputs")

	// ErrUnsortedOrDuplicateOutputs indicates the outputs of a body are
	// not in canonical order or contain a duplicate.
	ErrUnsortedOrDuplicateOutputs = newRuleError("ErrUnsortedOrDuplicateOutputs")

	// ErrUnsortedOrDuplicateKernels indicates the kernels of a body are
	// not in canonical order or contain a duplicate.
	ErrUnsortedOrDuplicateKernels = newRuleError("ErrUnsortedOrDuplicateKernels")

	// ErrInputMaturity indicates an input is spent before its maturity height.
	ErrInputMaturity = newRuleError("ErrInputMaturity")

	// ErrInvalidKernelLockHeight indicates a kernel is included before
	// its lock height, or with a lock height too far in the future.
	ErrInvalidKernelLockHeight = newRuleError("ErrInvalidKernelLockHeight")

	// ErrNoCutThrough indicates an output of a body is also spent by one
	// of its inputs.
	ErrNoCutThrough = newRuleError("ErrNoCutThrough")

	// ErrUnknownInput indicates an input spends an output the chain has
	// never seen.
	ErrUnknownInput = newRuleError("ErrUnknownInput")

	// ErrInputSpent indicates an input spends an output that was
	// already spent.
	ErrInputSpent = newRuleError("ErrInputSpent")

	// ErrInputFeaturesMismatch indicates the features carried by an
	// input differ from the features of the output it spends.
	ErrInputFeaturesMismatch = newRuleError("ErrInputFeaturesMismatch")

	// ErrDuplicateTxo indicates an output commitment is already known to
	// the chain.
	ErrDuplicateTxo = newRuleError("ErrDuplicateTxo")

	// ErrNoCoinbase indicates a block has no coinbase kernel or output.
	ErrNoCoinbase = newRuleError("ErrNoCoinbase")

	// ErrMoreThanOneCoinbase indicates a block has more than one
	// coinbase kernel.
	ErrMoreThanOneCoinbase = newRuleError("ErrMoreThanOneCoinbase")

	// ErrInvalidCoinbaseMaturity indicates a coinbase output unlocks
	// before the coinbase lock height.
	ErrInvalidCoinbaseMaturity = newRuleError("ErrInvalidCoinbaseMaturity")

	// ErrInvalidCoinbase indicates the coinbase outputs don't commit to
	// exactly the block reward plus fees.
	ErrInvalidCoinbase = newRuleError("ErrInvalidCoinbase")

	// ErrCoinbaseInTransaction indicates a transaction outside a block
	// carries coinbase features.
	ErrCoinbaseInTransaction = newRuleError("ErrCoinbaseInTransaction")

	// ErrKernelSumMismatch indicates the commitments of a body don't
	// balance against its kernel excesses, offset and reward.
	ErrKernelSumMismatch = newRuleError("ErrKernelSumMismatch")

	// ErrScriptOffsetMismatch indicates the script keys of a body don't
	// balance against its script offset.
	ErrScriptOffsetMismatch = newRuleError("ErrScriptOffsetMismatch")

	// ErrInvalidKernelSignature indicates a kernel signature doesn't
	// verify against its excess.
	ErrInvalidKernelSignature = newRuleError("ErrInvalidKernelSignature")

	// ErrInvalidCommitment indicates a commitment or public key isn't a
	// valid curve point.
	ErrInvalidCommitment = newRuleError("ErrInvalidCommitment")

	// ErrInvalidWitnessMr indicates a header's reserved witness root is set.
	ErrInvalidWitnessMr = newRuleError("ErrInvalidWitnessMr")

	// ErrUnknownParent indicates a block's previous hash isn't in the chain.
	ErrUnknownParent = newRuleError("ErrUnknownParent")

	// ErrWrongHeight indicates a block's height isn't its parent's height + 1.
	ErrWrongHeight = newRuleError("ErrWrongHeight")

	// ErrPowTooLow indicates the achieved difficulty of a header is
	// below its target.
	ErrPowTooLow = newRuleError("ErrPowTooLow")

	// ErrAccumulatedDifficultyDecreased indicates a header's total
	// accumulated difficulty is below its parent's.
	ErrAccumulatedDifficultyDecreased = newRuleError("ErrAccumulatedDifficultyDecreased")

	// ErrChainBalanceMismatch indicates the unspent outputs of a chain
	// don't add up to its kernels, offsets and emission.
	ErrChainBalanceMismatch = newRuleError("ErrChainBalanceMismatch")
)

// RuleError identifies a rule violation. It is used to indicate that
// processing of a block or transaction failed due to one of the many
// validation rules. The caller can use type assertions to determine if a
// failure was specifically due to a rule violation.
type RuleError struct {
	message string
	inner   error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

// Unwrap satisfies the errors.Unwrap interface
func (e RuleError) Unwrap() error {
	return e.inner
}

// Cause satisfies the github.com/pkg/errors.Cause interface
func (e RuleError) Cause() error {
	return e.inner
}

func newRuleError(message string) RuleError {
	return RuleError{message: message, inner: nil}
}

// ErrMismatchedMmrSize indicates the MMR size a header commits to
// differs from the size obtained by replaying the block. Expected is
// the replayed size and Actual the size found in the header.
type ErrMismatchedMmrSize struct {
	Tree     externalapi.MmrTree
	Expected uint64
	Actual   uint64
}

func (e ErrMismatchedMmrSize) Error() string {
	return fmt.Sprintf("%s MMR size mismatch: expected %d, header commits to %d", e.Tree, e.Expected, e.Actual)
}

// NewErrMismatchedMmrSize creates a new ErrMismatchedMmrSize error wrapped in a RuleError
func NewErrMismatchedMmrSize(tree externalapi.MmrTree, expected uint64, actual uint64) error {
	return errors.WithStack(RuleError{
		message: "ErrMismatchedMmrSize",
		inner:   ErrMismatchedMmrSize{Tree: tree, Expected: expected, Actual: actual},
	})
}

// ErrMismatchedMmrRoots indicates the MMR root a block header commits to
// differs from the root obtained by replaying the block
type ErrMismatchedMmrRoots struct {
	Tree externalapi.MmrTree
}

func (e ErrMismatchedMmrRoots) Error() string {
	return fmt.Sprintf("%s MMR root mismatch", e.Tree)
}

// NewErrMismatchedMmrRoots creates a new ErrMismatchedMmrRoots error wrapped in a RuleError
func NewErrMismatchedMmrRoots(tree externalapi.MmrTree) error {
	return errors.WithStack(RuleError{
		message: "ErrMismatchedMmrRoots",
		inner:   ErrMismatchedMmrRoots{Tree: tree},
	})
}

// ErrInvalidMmrRoot indicates data received during horizon sync doesn't
// rebuild the MMR root its header commits to
type ErrInvalidMmrRoot struct {
	Tree   externalapi.MmrTree
	Height uint64
}

func (e ErrInvalidMmrRoot) Error() string {
	return fmt.Sprintf("invalid %s MMR root at height %d", e.Tree, e.Height)
}

// NewErrInvalidMmrRoot creates a new ErrInvalidMmrRoot error wrapped in a RuleError
func NewErrInvalidMmrRoot(tree externalapi.MmrTree, height uint64) error {
	return errors.WithStack(RuleError{
		message: "ErrInvalidMmrRoot",
		inner:   ErrInvalidMmrRoot{Tree: tree, Height: height},
	})
}
