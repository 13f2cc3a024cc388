package model

import "github.com/mwnode/basenode/domain/consensus/model/externalapi"

// TransactionValidator exposes the checks shared by block and
// transaction validation
type TransactionValidator interface {
	CheckSortingAndDuplicates(body *externalapi.AggregateBody) error
	CheckInputMaturity(body *externalapi.AggregateBody, height uint64) error
	CheckKernelLockHeights(body *externalapi.AggregateBody, height uint64) error
	CheckCutThrough(body *externalapi.AggregateBody) error
	CheckInputsAreUtxos(body *externalapi.AggregateBody) error
	CheckNotDuplicateTxos(body *externalapi.AggregateBody) error
	CheckKernelSum(body *externalapi.AggregateBody, offset *externalapi.Scalar, totalCoinbase uint64) error
	CheckScriptOffset(body *externalapi.AggregateBody, scriptOffset *externalapi.Scalar) error
	CheckKernelSignatures(body *externalapi.AggregateBody) error

	ValidateTransaction(transaction *externalapi.Transaction, tipHeight uint64) error
}
