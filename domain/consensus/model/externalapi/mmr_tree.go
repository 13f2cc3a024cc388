package externalapi

import "fmt"

// MmrTree identifies one of the merkle mountain ranges that a
// block header commits to
type MmrTree byte

const (
	// MmrTreeKernel is the kernel MMR
	MmrTreeKernel MmrTree = iota
	// MmrTreeUtxo is the output MMR
	MmrTreeUtxo
	// MmrTreeRangeProof is the range proof MMR
	MmrTreeRangeProof
	// MmrTreeInput is the per-block input MMR
	MmrTreeInput
	// MmrTreeWitness is the per-block witness MMR
	MmrTreeWitness
)

var mmrTreeStrings = map[MmrTree]string{
	MmrTreeKernel:     "Kernel",
	MmrTreeUtxo:       "Utxo",
	MmrTreeRangeProof: "RangeProof",
	MmrTreeInput:      "Input",
	MmrTreeWitness:    "Witness",
}

func (tree MmrTree) String() string {
	if s, ok := mmrTreeStrings[tree]; ok {
		return s
	}
	return fmt.Sprintf("MmrTree(%d)", byte(tree))
}
