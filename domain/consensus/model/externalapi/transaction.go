package externalapi

import (
	"sort"
)

// OutputFlags are the feature flags of a transaction output
type OutputFlags byte

const (
	// OutputFlagCoinbase marks a coinbase output
	OutputFlagCoinbase OutputFlags = 1 << iota
)

// KernelFeatures are the feature flags of a transaction kernel
type KernelFeatures byte

const (
	// KernelFeatureCoinbase marks a coinbase kernel
	KernelFeatureCoinbase KernelFeatures = 1 << iota
)

// OutputFeatures are the features attached to an output. Inputs carry
// a copy of the features of the output they spend.
type OutputFeatures struct {
	Flags    OutputFlags
	Maturity uint64
	Metadata []byte
}

// IsCoinbase returns whether the features belong to a coinbase output
func (features *OutputFeatures) IsCoinbase() bool {
	return features.Flags&OutputFlagCoinbase != 0
}

// Clone returns a clone of OutputFeatures
func (features *OutputFeatures) Clone() OutputFeatures {
	metadataClone := make([]byte, len(features.Metadata))
	copy(metadataClone, features.Metadata)
	return OutputFeatures{Flags: features.Flags, Maturity: features.Maturity, Metadata: metadataClone}
}

// TransactionKernel is the signed, fee-bearing record anchoring a transaction
type TransactionKernel struct {
	Features   KernelFeatures
	Fee        uint64
	LockHeight uint64
	Excess     Commitment
	ExcessSig  Signature
}

// IsCoinbase returns whether this is a coinbase kernel
func (kernel *TransactionKernel) IsCoinbase() bool {
	return kernel.Features&KernelFeatureCoinbase != 0
}

// TransactionOutput is a new output created by a transaction
type TransactionOutput struct {
	Features              OutputFeatures
	Commitment            Commitment
	RangeProof            []byte
	SenderOffsetPublicKey PublicKey
}

// Clone returns a clone of TransactionOutput
func (output *TransactionOutput) Clone() *TransactionOutput {
	rangeProofClone := make([]byte, len(output.RangeProof))
	copy(rangeProofClone, output.RangeProof)
	return &TransactionOutput{
		Features:              output.Features.Clone(),
		Commitment:            output.Commitment,
		RangeProof:            rangeProofClone,
		SenderOffsetPublicKey: output.SenderOffsetPublicKey,
	}
}

// TransactionInput spends a previously created output
type TransactionInput struct {
	Features        OutputFeatures
	Commitment      Commitment
	ScriptPublicKey PublicKey
}

// AggregateBody is the body shared by transactions and blocks
type AggregateBody struct {
	Inputs  []*TransactionInput
	Outputs []*TransactionOutput
	Kernels []*TransactionKernel
}

// Sort puts the body in canonical order: inputs and outputs by
// commitment, kernels by excess
func (body *AggregateBody) Sort() {
	sort.Slice(body.Inputs, func(i, j int) bool {
		return body.Inputs[i].Commitment.Less(&body.Inputs[j].Commitment)
	})
	sort.Slice(body.Outputs, func(i, j int) bool {
		return body.Outputs[i].Commitment.Less(&body.Outputs[j].Commitment)
	})
	sort.Slice(body.Kernels, func(i, j int) bool {
		return body.Kernels[i].Excess.Less(&body.Kernels[j].Excess)
	})
}

// TotalFees returns the sum of all kernel fees
func (body *AggregateBody) TotalFees() uint64 {
	fees := uint64(0)
	for _, kernel := range body.Kernels {
		fees += kernel.Fee
	}
	return fees
}

// Transaction is an aggregate body together with its offsets
type Transaction struct {
	Offset       Scalar
	ScriptOffset Scalar
	Body         AggregateBody
}

// Block is a block header together with its body
type Block struct {
	Header *BlockHeader
	Body   AggregateBody
}
