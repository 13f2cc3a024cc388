package model

import "github.com/mwnode/basenode/domain/consensus/model/externalapi"

// MmrRoots are the MMR roots and sizes a block header commits to
type MmrRoots struct {
	KernelMr      externalapi.DomainHash
	KernelMmrSize uint64
	OutputMr      externalapi.DomainHash
	OutputMmrSize uint64
	RangeProofMr  externalapi.DomainHash
	InputMr       externalapi.DomainHash
	WitnessMr     externalapi.DomainHash
}

// MmrRootsOf returns the MMR roots and sizes committed to by header
func MmrRootsOf(header *externalapi.BlockHeader) *MmrRoots {
	return &MmrRoots{
		KernelMr:      header.KernelMr,
		KernelMmrSize: header.KernelMmrSize,
		OutputMr:      header.OutputMr,
		OutputMmrSize: header.OutputMmrSize,
		RangeProofMr:  header.RangeProofMr,
		InputMr:       header.InputMr,
		WitnessMr:     header.WitnessMr,
	}
}

// ApplyTo sets the roots and sizes on header
func (roots *MmrRoots) ApplyTo(header *externalapi.BlockHeader) {
	header.KernelMr = roots.KernelMr
	header.KernelMmrSize = roots.KernelMmrSize
	header.OutputMr = roots.OutputMr
	header.OutputMmrSize = roots.OutputMmrSize
	header.RangeProofMr = roots.RangeProofMr
	header.InputMr = roots.InputMr
	header.WitnessMr = roots.WitnessMr
}
