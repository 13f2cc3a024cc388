package weight

import (
	"testing"

	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
)

func TestBodyWeight(t *testing.T) {
	tests := []struct {
		name           string
		body           *externalapi.AggregateBody
		expectedWeight uint64
	}{
		{
			name:           "empty",
			body:           &externalapi.AggregateBody{},
			expectedWeight: 0,
		},
		{
			name: "one of each",
			body: &externalapi.AggregateBody{
				Inputs:  []*externalapi.TransactionInput{{}},
				Outputs: []*externalapi.TransactionOutput{{}},
				Kernels: []*externalapi.TransactionKernel{{}},
			},
			expectedWeight: 17,
		},
		{
			name: "metadata",
			body: &externalapi.AggregateBody{
				Outputs: []*externalapi.TransactionOutput{
					{Features: externalapi.OutputFeatures{Metadata: make([]byte, 10)}},
					{},
				},
			},
			expectedWeight: 36,
		},
	}
	for _, test := range tests {
		weight := BodyWeight(test.body)
		if weight != test.expectedWeight {
			t.Fatalf("TestBodyWeight: %s: expected weight %d, got %d", test.name, test.expectedWeight, weight)
		}
	}
}
