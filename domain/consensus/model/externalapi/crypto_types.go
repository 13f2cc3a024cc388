package externalapi

import (
	"bytes"
	"encoding/hex"

	"github.com/pkg/errors"
)

// CommitmentSize is the size of a serialized compressed curve point
const CommitmentSize = 33

// SignatureSize is the size of a serialized schnorr signature
const SignatureSize = 64

// ScalarSize is the size of a serialized curve scalar
const ScalarSize = 32

// Commitment is a Pedersen commitment v*H + r*G serialized as a
// compressed curve point. The all-zero value denotes the point at
// infinity.
type Commitment [CommitmentSize]byte

// PublicKey is a curve point serialized in compressed form
type PublicKey = Commitment

// Signature is a serialized schnorr signature
type Signature [SignatureSize]byte

// Scalar is a big-endian serialized secp256k1 scalar. Blinding
// factors, kernel offsets and script offsets are scalars.
type Scalar [ScalarSize]byte

// NewCommitmentFromSlice copies the given bytes into a Commitment
func NewCommitmentFromSlice(commitmentBytes []byte) (Commitment, error) {
	var commitment Commitment
	if len(commitmentBytes) != CommitmentSize {
		return commitment, errors.Errorf("invalid commitment size. Want: %d, got: %d",
			CommitmentSize, len(commitmentBytes))
	}
	copy(commitment[:], commitmentBytes)
	return commitment, nil
}

func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}

// Less returns true if c sorts before other
func (c *Commitment) Less(other *Commitment) bool {
	return bytes.Compare(c[:], other[:]) < 0
}

// IsZero returns whether the commitment is the point at infinity
func (c *Commitment) IsZero() bool {
	return *c == Commitment{}
}

func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}

func (s Scalar) String() string {
	return hex.EncodeToString(s[:])
}
