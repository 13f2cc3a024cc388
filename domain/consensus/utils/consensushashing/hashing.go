package consensushashing

import (
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/utils/hashes"
)

// HeaderHash returns the given header's hash
func HeaderHash(header *externalapi.BlockHeader) *externalapi.DomainHash {
	writer := hashes.NewBlockHashWriter()
	writer.WriteUint64(uint64(header.Version))
	writer.WriteUint64(header.Height)
	writer.WriteHash(&header.PrevHash)
	writer.WriteUint64(uint64(header.TimestampSeconds))
	writer.WriteHash(&header.KernelMr)
	writer.WriteHash(&header.OutputMr)
	writer.WriteHash(&header.RangeProofMr)
	writer.WriteHash(&header.InputMr)
	writer.WriteHash(&header.WitnessMr)
	writer.WriteUint64(header.KernelMmrSize)
	writer.WriteUint64(header.OutputMmrSize)
	writer.InfallibleWrite(header.TotalKernelOffset[:])
	writer.InfallibleWrite(header.TotalScriptOffset[:])
	writer.InfallibleWrite([]byte{byte(header.Pow.Algorithm)})
	writer.WriteUint64(header.Pow.Nonce)
	writer.WriteVarBytes(header.Pow.Data)
	return writer.Finalize()
}

// BlockHash returns the given block's hash
func BlockHash(block *externalapi.Block) *externalapi.DomainHash {
	return HeaderHash(block.Header)
}

// KernelHash returns the hash a kernel is stored under in the kernel MMR
func KernelHash(kernel *externalapi.TransactionKernel) *externalapi.DomainHash {
	writer := hashes.NewKernelHashWriter()
	writer.InfallibleWrite([]byte{byte(kernel.Features)})
	writer.WriteUint64(kernel.Fee)
	writer.WriteUint64(kernel.LockHeight)
	writer.InfallibleWrite(kernel.Excess[:])
	writer.InfallibleWrite(kernel.ExcessSig[:])
	return writer.Finalize()
}

func writeOutputFeatures(writer hashes.HashWriter, features *externalapi.OutputFeatures) {
	writer.InfallibleWrite([]byte{byte(features.Flags)})
	writer.WriteUint64(features.Maturity)
	writer.WriteVarBytes(features.Metadata)
}

// OutputHash returns the hash an output is stored under in the output
// MMR. The range proof is committed to separately.
func OutputHash(output *externalapi.TransactionOutput) *externalapi.DomainHash {
	writer := hashes.NewOutputHashWriter()
	writeOutputFeatures(writer, &output.Features)
	writer.InfallibleWrite(output.Commitment[:])
	writer.InfallibleWrite(output.SenderOffsetPublicKey[:])
	return writer.Finalize()
}

// RangeProofHash returns the hash of a range proof as stored in the
// range proof MMR
func RangeProofHash(rangeProof []byte) *externalapi.DomainHash {
	writer := hashes.NewRangeProofHashWriter()
	writer.WriteVarBytes(rangeProof)
	return writer.Finalize()
}

// InputHash returns the hash of an input as stored in the input MMR
func InputHash(input *externalapi.TransactionInput) *externalapi.DomainHash {
	writer := hashes.NewInputHashWriter()
	writeOutputFeatures(writer, &input.Features)
	writer.InfallibleWrite(input.Commitment[:])
	writer.InfallibleWrite(input.ScriptPublicKey[:])
	return writer.Finalize()
}

// KernelSignatureMessage returns the message a kernel's excess signature
// signs
func KernelSignatureMessage(features externalapi.KernelFeatures, fee uint64,
	lockHeight uint64) *externalapi.DomainHash {

	writer := hashes.NewKernelSignatureMessageWriter()
	writer.InfallibleWrite([]byte{byte(features)})
	writer.WriteUint64(fee)
	writer.WriteUint64(lockHeight)
	return writer.Finalize()
}
