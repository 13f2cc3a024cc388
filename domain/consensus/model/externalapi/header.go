package externalapi

// PowAlgorithm identifies the proof-of-work algorithm a header was mined with
type PowAlgorithm byte

const (
	// PowAlgorithmMonero is the merge-mined RandomX algorithm
	PowAlgorithmMonero PowAlgorithm = iota
	// PowAlgorithmSha3 is the native sha3 algorithm
	PowAlgorithmSha3
)

func (algorithm PowAlgorithm) String() string {
	switch algorithm {
	case PowAlgorithmMonero:
		return "Monero"
	case PowAlgorithmSha3:
		return "Sha3"
	default:
		return "Unknown"
	}
}

// ProofOfWork is the proof-of-work metadata carried by a block header
type ProofOfWork struct {
	Algorithm PowAlgorithm
	Nonce     uint64
	Data      []byte
}

// Clone returns a clone of ProofOfWork
func (pow *ProofOfWork) Clone() ProofOfWork {
	dataClone := make([]byte, len(pow.Data))
	copy(dataClone, pow.Data)
	return ProofOfWork{Algorithm: pow.Algorithm, Nonce: pow.Nonce, Data: dataClone}
}

// BlockHeader is the header of a block. KernelMmrSize and OutputMmrSize
// are the cumulative leaf counts of the kernel and output MMRs once the
// block is applied. TotalKernelOffset and TotalScriptOffset are the
// offsets of this block alone.
type BlockHeader struct {
	Version           uint16
	Height            uint64
	PrevHash          DomainHash
	TimestampSeconds  int64
	KernelMr          DomainHash
	OutputMr          DomainHash
	RangeProofMr      DomainHash
	InputMr           DomainHash
	WitnessMr         DomainHash
	KernelMmrSize     uint64
	OutputMmrSize     uint64
	TotalKernelOffset Scalar
	TotalScriptOffset Scalar
	Pow               ProofOfWork
}

// Clone returns a clone of BlockHeader
func (header *BlockHeader) Clone() *BlockHeader {
	clone := *header
	clone.Pow = header.Pow.Clone()
	return &clone
}

// MmrRoot returns the header's committed root for the given tree
func (header *BlockHeader) MmrRoot(tree MmrTree) DomainHash {
	switch tree {
	case MmrTreeKernel:
		return header.KernelMr
	case MmrTreeUtxo:
		return header.OutputMr
	case MmrTreeRangeProof:
		return header.RangeProofMr
	case MmrTreeInput:
		return header.InputMr
	case MmrTreeWitness:
		return header.WitnessMr
	}
	return ZeroHash
}
