package testutils

import (
	"testing"

	"github.com/mwnode/basenode/domain/dagconfig"
)

var allNetNames = []string{"mainnet", "testnet", "simnet"}

// ForAllNets runs testFunc as a parallel subtest for every registered
// network
func ForAllNets(t *testing.T, testFunc func(t *testing.T, params *dagconfig.Params)) {
	for _, name := range allNetNames {
		params, err := dagconfig.ParamsByName(name)
		if err != nil {
			t.Fatalf("ForAllNets: %+v", err)
		}
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			testFunc(t, params)
		})
	}
}
