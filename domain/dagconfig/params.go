package dagconfig

import (
	"time"

	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// ConsensusConstants are the consensus rules that apply from a given
// height on. Networks schedule rule changes by listing several of them.
type ConsensusConstants struct {
	// EffectiveFromHeight is the first height these constants apply to
	EffectiveFromHeight uint64

	// MaxBlockWeight is the maximum weight of a block body
	MaxBlockWeight uint64

	// CoinbaseLockHeight is the number of blocks a coinbase output must
	// stay locked for
	CoinbaseLockHeight uint64
}

// Params defines a network by its parameters
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// GenesisBlock defines the first block of the chain.
	GenesisBlock *externalapi.Block

	// GenesisHash is the starting block hash.
	GenesisHash *externalapi.DomainHash

	// Constants is the consensus constant schedule, ordered by
	// EffectiveFromHeight and starting at height 0
	Constants []ConsensusConstants

	// EmissionInitial is the block reward right after genesis
	EmissionInitial uint64

	// EmissionHalvingInterval is the number of blocks after which the
	// reward is halved
	EmissionHalvingInterval uint64

	// EmissionTail is the reward floor the emission never goes below
	EmissionTail uint64

	// MinMoneroDifficulty and MinSha3Difficulty are the lowest target
	// difficulties of each proof of work algorithm
	MinMoneroDifficulty uint64
	MinSha3Difficulty   uint64

	// PruningHorizon is the number of blocks kept in full behind the tip
	PruningHorizon uint64

	// TargetTimePerBlock is the desired amount of time to generate each
	// block.
	TargetTimePerBlock time.Duration
}

// ConsensusConstants returns the consensus constants active at height
func (p *Params) ConsensusConstants(height uint64) *ConsensusConstants {
	active := &p.Constants[0]
	for i := range p.Constants {
		if p.Constants[i].EffectiveFromHeight > height {
			break
		}
		active = &p.Constants[i]
	}
	return active
}

// BlockReward returns the amount a coinbase may mint at height, fees excluded
func (p *Params) BlockReward(height uint64) uint64 {
	if height == 0 {
		return 0
	}
	halvings := (height - 1) / p.EmissionHalvingInterval
	if halvings >= 64 {
		return p.EmissionTail
	}
	reward := p.EmissionInitial >> halvings
	if reward < p.EmissionTail {
		return p.EmissionTail
	}
	return reward
}

// TotalEmission returns the sum of the block rewards from genesis up to
// and including height
func (p *Params) TotalEmission(height uint64) uint64 {
	total := uint64(0)
	for start := uint64(1); start <= height; start += p.EmissionHalvingInterval {
		reward := p.BlockReward(start)
		if reward == p.EmissionTail {
			return total + (height-start+1)*reward
		}
		end := start + p.EmissionHalvingInterval - 1
		if end > height {
			end = height
		}
		total += (end - start + 1) * reward
	}
	return total
}

// MinDifficulty returns the lowest target difficulty of the given algorithm
func (p *Params) MinDifficulty(algorithm externalapi.PowAlgorithm) uint64 {
	if algorithm == externalapi.PowAlgorithmMonero {
		return p.MinMoneroDifficulty
	}
	return p.MinSha3Difficulty
}

const (
	microTariPerTari = 1_000_000
	defaultMaxWeight = 19_500
)

// MainnetParams defines the network parameters for the main network.
var MainnetParams = Params{
	Name:         "mainnet",
	GenesisBlock: genesisBlock,
	GenesisHash:  genesisHash,
	Constants: []ConsensusConstants{
		{
			EffectiveFromHeight: 0,
			MaxBlockWeight:      defaultMaxWeight,
			CoinbaseLockHeight:  720,
		},
	},
	EmissionInitial:         5_538_846_115,
	EmissionHalvingInterval: 1_051_200,
	EmissionTail:            800 * microTariPerTari,
	MinMoneroDifficulty:     1_200_000_000,
	MinSha3Difficulty:       60_000_000_000,
	PruningHorizon:          2880,
	TargetTimePerBlock:      2 * time.Minute,
}

// TestnetParams defines the network parameters for the test network.
var TestnetParams = Params{
	Name:         "testnet",
	GenesisBlock: genesisBlock,
	GenesisHash:  genesisHash,
	Constants: []ConsensusConstants{
		{
			EffectiveFromHeight: 0,
			MaxBlockWeight:      defaultMaxWeight,
			CoinbaseLockHeight:  6,
		},
		{
			EffectiveFromHeight: 1000,
			MaxBlockWeight:      2 * defaultMaxWeight,
			CoinbaseLockHeight:  6,
		},
	},
	EmissionInitial:         5_538_846_115,
	EmissionHalvingInterval: 1_051_200,
	EmissionTail:            800 * microTariPerTari,
	MinMoneroDifficulty:     60_000,
	MinSha3Difficulty:       60_000,
	PruningHorizon:          1440,
	TargetTimePerBlock:      2 * time.Minute,
}

// SimnetParams defines the network parameters for the simulation test
// network. Its rules are relaxed so that tests can build chains by hand.
var SimnetParams = Params{
	Name:         "simnet",
	GenesisBlock: genesisBlock,
	GenesisHash:  genesisHash,
	Constants: []ConsensusConstants{
		{
			EffectiveFromHeight: 0,
			MaxBlockWeight:      defaultMaxWeight,
			CoinbaseLockHeight:  2,
		},
	},
	EmissionInitial:         10_000,
	EmissionHalvingInterval: 100,
	EmissionTail:            100,
	MinMoneroDifficulty:     1,
	MinSha3Difficulty:       1,
	PruningHorizon:          10,
	TargetTimePerBlock:      time.Second,
}

var (
	// ErrDuplicateNet describes an error where the parameters for a
	// network could not be set due to the network already being a standard
	// network or previously-registered into this package.
	ErrDuplicateNet = errors.New("duplicate network")

	// ErrUnknownNet describes an error where the requested network isn't
	// registered
	ErrUnknownNet = errors.New("unknown network")
)

var registeredNets = make(map[string]*Params)

// Register registers the network parameters for a network. This may
// error with ErrDuplicateNet if the network is already registered.
func Register(params *Params) error {
	if _, ok := registeredNets[params.Name]; ok {
		return errors.Wrapf(ErrDuplicateNet, "%s", params.Name)
	}
	registeredNets[params.Name] = params
	return nil
}

// ParamsByName returns the parameters of the registered network with the given name
func ParamsByName(name string) (*Params, error) {
	params, ok := registeredNets[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownNet, "%s", name)
	}
	return params, nil
}

func mustRegister(params *Params) {
	if err := Register(params); err != nil {
		panic("failed to register network: " + err.Error())
	}
}

func init() {
	// Register all default networks when the package is initialized.
	mustRegister(&MainnetParams)
	mustRegister(&TestnetParams)
	mustRegister(&SimnetParams)
}
