package serialization

import (
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

const (
	kernelFieldFeatures = iota + 1
	kernelFieldFee
	kernelFieldLockHeight
	kernelFieldExcess
	kernelFieldExcessSig
)

const (
	featuresFieldFlags = iota + 1
	featuresFieldMaturity
	featuresFieldMetadata
)

const (
	outputFieldFeatures = iota + 1
	outputFieldCommitment
	outputFieldRangeProof
	outputFieldSenderOffsetPublicKey
)

const (
	inputFieldFeatures = iota + 1
	inputFieldCommitment
	inputFieldScriptPublicKey
)

const (
	bodyFieldInputs = iota + 1
	bodyFieldOutputs
	bodyFieldKernels
)

const (
	blockFieldHeader = iota + 1
	blockFieldBody
)

// KernelToRecord encodes a TransactionKernel
func KernelToRecord(kernel *externalapi.TransactionKernel) *RecordWriter {
	w := NewRecordWriter()
	w.Uint64(kernelFieldFeatures, uint64(kernel.Features))
	w.Uint64(kernelFieldFee, kernel.Fee)
	w.Uint64(kernelFieldLockHeight, kernel.LockHeight)
	w.Bytes(kernelFieldExcess, kernel.Excess[:])
	w.Bytes(kernelFieldExcessSig, kernel.ExcessSig[:])
	return w
}

// RecordToKernel decodes a TransactionKernel
func RecordToKernel(record *Record) (*externalapi.TransactionKernel, error) {
	features := record.Uint64(kernelFieldFeatures)
	if features > 0xff {
		return nil, errors.Wrapf(ErrMalformed, "invalid kernel features %d", features)
	}
	kernel := &externalapi.TransactionKernel{
		Features:   externalapi.KernelFeatures(features),
		Fee:        record.Uint64(kernelFieldFee),
		LockHeight: record.Uint64(kernelFieldLockHeight),
	}
	err := record.Fixed(kernelFieldExcess, kernel.Excess[:])
	if err != nil {
		return nil, err
	}
	err = record.Fixed(kernelFieldExcessSig, kernel.ExcessSig[:])
	if err != nil {
		return nil, err
	}
	return kernel, nil
}

func outputFeaturesToRecord(features *externalapi.OutputFeatures) *RecordWriter {
	w := NewRecordWriter()
	w.Uint64(featuresFieldFlags, uint64(features.Flags))
	w.Uint64(featuresFieldMaturity, features.Maturity)
	w.Bytes(featuresFieldMetadata, features.Metadata)
	return w
}

func recordToOutputFeatures(record *Record) (externalapi.OutputFeatures, error) {
	flags := record.Uint64(featuresFieldFlags)
	if flags > 0xff {
		return externalapi.OutputFeatures{}, errors.Wrapf(ErrMalformed, "invalid output flags %d", flags)
	}
	return externalapi.OutputFeatures{
		Flags:    externalapi.OutputFlags(flags),
		Maturity: record.Uint64(featuresFieldMaturity),
		Metadata: record.Bytes(featuresFieldMetadata),
	}, nil
}

// OutputToRecord encodes a TransactionOutput
func OutputToRecord(output *externalapi.TransactionOutput) *RecordWriter {
	w := NewRecordWriter()
	w.Message(outputFieldFeatures, outputFeaturesToRecord(&output.Features))
	w.Bytes(outputFieldCommitment, output.Commitment[:])
	w.Bytes(outputFieldRangeProof, output.RangeProof)
	w.Bytes(outputFieldSenderOffsetPublicKey, output.SenderOffsetPublicKey[:])
	return w
}

// RecordToOutput decodes a TransactionOutput
func RecordToOutput(record *Record) (*externalapi.TransactionOutput, error) {
	featuresRecord, err := record.Message(outputFieldFeatures)
	if err != nil {
		return nil, err
	}
	features, err := recordToOutputFeatures(featuresRecord)
	if err != nil {
		return nil, err
	}
	output := &externalapi.TransactionOutput{
		Features:   features,
		RangeProof: record.Bytes(outputFieldRangeProof),
	}
	err = record.Fixed(outputFieldCommitment, output.Commitment[:])
	if err != nil {
		return nil, err
	}
	err = record.Fixed(outputFieldSenderOffsetPublicKey, output.SenderOffsetPublicKey[:])
	if err != nil {
		return nil, err
	}
	return output, nil
}

// InputToRecord encodes a TransactionInput
func InputToRecord(input *externalapi.TransactionInput) *RecordWriter {
	w := NewRecordWriter()
	w.Message(inputFieldFeatures, outputFeaturesToRecord(&input.Features))
	w.Bytes(inputFieldCommitment, input.Commitment[:])
	w.Bytes(inputFieldScriptPublicKey, input.ScriptPublicKey[:])
	return w
}

// RecordToInput decodes a TransactionInput
func RecordToInput(record *Record) (*externalapi.TransactionInput, error) {
	featuresRecord, err := record.Message(inputFieldFeatures)
	if err != nil {
		return nil, err
	}
	features, err := recordToOutputFeatures(featuresRecord)
	if err != nil {
		return nil, err
	}
	input := &externalapi.TransactionInput{Features: features}
	err = record.Fixed(inputFieldCommitment, input.Commitment[:])
	if err != nil {
		return nil, err
	}
	err = record.Fixed(inputFieldScriptPublicKey, input.ScriptPublicKey[:])
	if err != nil {
		return nil, err
	}
	return input, nil
}

// AggregateBodyToRecord encodes an AggregateBody
func AggregateBodyToRecord(body *externalapi.AggregateBody) *RecordWriter {
	w := NewRecordWriter()
	for _, input := range body.Inputs {
		w.Message(bodyFieldInputs, InputToRecord(input))
	}
	for _, output := range body.Outputs {
		w.Message(bodyFieldOutputs, OutputToRecord(output))
	}
	for _, kernel := range body.Kernels {
		w.Message(bodyFieldKernels, KernelToRecord(kernel))
	}
	return w
}

// RecordToAggregateBody decodes an AggregateBody
func RecordToAggregateBody(record *Record) (*externalapi.AggregateBody, error) {
	body := &externalapi.AggregateBody{}
	for _, data := range record.RepeatedBytes(bodyFieldInputs) {
		input, err := decodeWith(data, RecordToInput)
		if err != nil {
			return nil, err
		}
		body.Inputs = append(body.Inputs, input)
	}
	for _, data := range record.RepeatedBytes(bodyFieldOutputs) {
		output, err := decodeWith(data, RecordToOutput)
		if err != nil {
			return nil, err
		}
		body.Outputs = append(body.Outputs, output)
	}
	for _, data := range record.RepeatedBytes(bodyFieldKernels) {
		kernel, err := decodeWith(data, RecordToKernel)
		if err != nil {
			return nil, err
		}
		body.Kernels = append(body.Kernels, kernel)
	}
	return body, nil
}

// BlockToRecord encodes a Block
func BlockToRecord(block *externalapi.Block) *RecordWriter {
	w := NewRecordWriter()
	w.Message(blockFieldHeader, BlockHeaderToRecord(block.Header))
	w.Message(blockFieldBody, AggregateBodyToRecord(&block.Body))
	return w
}

// RecordToBlock decodes a Block
func RecordToBlock(record *Record) (*externalapi.Block, error) {
	if !record.Has(blockFieldHeader) {
		return nil, errors.Wrapf(ErrMalformed, "block has no header")
	}
	header, err := decodeWith(record.Bytes(blockFieldHeader), RecordToBlockHeader)
	if err != nil {
		return nil, err
	}
	body, err := decodeWith(record.Bytes(blockFieldBody), RecordToAggregateBody)
	if err != nil {
		return nil, err
	}
	return &externalapi.Block{Header: header, Body: *body}, nil
}

func decodeWith[T any](data []byte, decode func(*Record) (T, error)) (T, error) {
	record, err := ParseRecord(data)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode(record)
}

// SerializeKernel serializes a TransactionKernel
func SerializeKernel(kernel *externalapi.TransactionKernel) []byte {
	return KernelToRecord(kernel).Serialize()
}

// DeserializeKernel deserializes a TransactionKernel
func DeserializeKernel(data []byte) (*externalapi.TransactionKernel, error) {
	return decodeWith(data, RecordToKernel)
}

// SerializeOutput serializes a TransactionOutput
func SerializeOutput(output *externalapi.TransactionOutput) []byte {
	return OutputToRecord(output).Serialize()
}

// DeserializeOutput deserializes a TransactionOutput
func DeserializeOutput(data []byte) (*externalapi.TransactionOutput, error) {
	return decodeWith(data, RecordToOutput)
}

// SerializeBlock serializes a Block
func SerializeBlock(block *externalapi.Block) []byte {
	return BlockToRecord(block).Serialize()
}

// DeserializeBlock deserializes a Block
func DeserializeBlock(data []byte) (*externalapi.Block, error) {
	return decodeWith(data, RecordToBlock)
}
