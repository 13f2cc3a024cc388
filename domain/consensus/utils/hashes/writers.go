package hashes

import (
	"encoding/binary"
	"hash"

	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// HashWriter is used to incrementally hash data without concatenating all of the data to a single buffer
// it exposes an io.Writer api and a Finalize function to get the resulting hash.
// The used hash function is blake2b.
// This can only be created via one of the domain separated constructors
type HashWriter struct {
	hash.Hash
}

// InfallibleWrite is just like write but doesn't return anything
func (h HashWriter) InfallibleWrite(p []byte) {
	// This write can never return an error, this is part of the hash.Hash interface contract.
	_, err := h.Write(p)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. hash.Hash interface promises to not return errors."))
	}
}

// WriteUint64 writes the little-endian encoding of value
func (h HashWriter) WriteUint64(value uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	h.InfallibleWrite(buf[:])
}

// WriteVarBytes writes the length of data followed by data itself
func (h HashWriter) WriteVarBytes(data []byte) {
	h.WriteUint64(uint64(len(data)))
	h.InfallibleWrite(data)
}

// WriteHash writes the given hash
func (h HashWriter) WriteHash(domainHash *externalapi.DomainHash) {
	h.InfallibleWrite(domainHash.ByteSlice())
}

// Finalize returns the resulting hash
func (h HashWriter) Finalize() *externalapi.DomainHash {
	var sum [externalapi.DomainHashSize]byte
	// This should prevent `Sum` for allocating an output buffer, by using the DomainHash buffer. we still copy because we don't want to rely on that.
	copy(sum[:], h.Sum(sum[:0]))
	return externalapi.NewDomainHashFromByteArray(&sum)
}

func newHashWriter(domain string) HashWriter {
	blake, err := blake2b.New256([]byte(domain))
	if err != nil {
		panic(errors.Wrapf(err, "this should never happen. %s is less than 64 bytes", domain))
	}
	return HashWriter{blake}
}

const (
	blockHashDomain          = "BlockHash"
	kernelHashDomain         = "KernelHash"
	outputHashDomain         = "OutputHash"
	inputHashDomain          = "InputHash"
	rangeProofHashDomain     = "RangeProofHash"
	mmrNodeHashDomain        = "MmrNodeHash"
	mmrRootHashDomain        = "MmrRootHash"
	deletedBitmapHashDomain  = "DeletedBitmapHash"
	mutableMmrRootHashDomain = "MutableMmrRootHash"
	kernelSignatureDomain    = "KernelSignatureMessage"
	generatorHDomain         = "PedersenGeneratorH"
)

// NewBlockHashWriter returns a new HashWriter used for block header hashes
func NewBlockHashWriter() HashWriter {
	return newHashWriter(blockHashDomain)
}

// NewKernelHashWriter returns a new HashWriter used for kernel hashes
func NewKernelHashWriter() HashWriter {
	return newHashWriter(kernelHashDomain)
}

// NewOutputHashWriter returns a new HashWriter used for output hashes
func NewOutputHashWriter() HashWriter {
	return newHashWriter(outputHashDomain)
}

// NewInputHashWriter returns a new HashWriter used for input hashes
func NewInputHashWriter() HashWriter {
	return newHashWriter(inputHashDomain)
}

// NewRangeProofHashWriter returns a new HashWriter used for range proof hashes
func NewRangeProofHashWriter() HashWriter {
	return newHashWriter(rangeProofHashDomain)
}

// NewMmrNodeHashWriter returns a new HashWriter used for MMR parent nodes
func NewMmrNodeHashWriter() HashWriter {
	return newHashWriter(mmrNodeHashDomain)
}

// NewMmrRootHashWriter returns a new HashWriter used for bagging MMR peaks
func NewMmrRootHashWriter() HashWriter {
	return newHashWriter(mmrRootHashDomain)
}

// NewDeletedBitmapHashWriter returns a new HashWriter used for deletion bitmaps
func NewDeletedBitmapHashWriter() HashWriter {
	return newHashWriter(deletedBitmapHashDomain)
}

// NewMutableMmrRootHashWriter returns a new HashWriter used for deletion-aware MMR roots
func NewMutableMmrRootHashWriter() HashWriter {
	return newHashWriter(mutableMmrRootHashDomain)
}

// NewKernelSignatureMessageWriter returns a new HashWriter used for the message kernels sign
func NewKernelSignatureMessageWriter() HashWriter {
	return newHashWriter(kernelSignatureDomain)
}

// NewGeneratorHWriter returns a new HashWriter used to derive the second Pedersen generator
func NewGeneratorHWriter() HashWriter {
	return newHashWriter(generatorHDomain)
}
