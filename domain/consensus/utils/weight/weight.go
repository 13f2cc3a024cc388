package weight

import "github.com/mwnode/basenode/domain/consensus/model/externalapi"

// The weight of each body component, in grams
const (
	InputWeight        = 1
	OutputWeight       = 13
	KernelWeight       = 3
	MetadataByteWeight = 1
)

// BodyWeight returns the weight of the given body: a fixed cost per
// input, output and kernel plus the size of every output's metadata
func BodyWeight(body *externalapi.AggregateBody) uint64 {
	weight := uint64(len(body.Inputs))*InputWeight +
		uint64(len(body.Outputs))*OutputWeight +
		uint64(len(body.Kernels))*KernelWeight
	for _, output := range body.Outputs {
		weight += uint64(len(output.Features.Metadata)) * MetadataByteWeight
	}
	return weight
}
