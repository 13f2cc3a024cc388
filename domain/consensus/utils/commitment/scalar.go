package commitment

import (
	"crypto/rand"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// ErrInvalidScalar is returned when bytes exceed the curve order
var ErrInvalidScalar = errors.New("scalar overflows the curve order")

func parseScalar(serialized *externalapi.Scalar) (*secp256k1.ModNScalar, error) {
	var k secp256k1.ModNScalar
	if overflow := k.SetByteSlice(serialized[:]); overflow {
		return nil, errors.Wrapf(ErrInvalidScalar, "%s", serialized)
	}
	return &k, nil
}

func serializeScalar(k *secp256k1.ModNScalar) externalapi.Scalar {
	return k.Bytes()
}

// AddScalars returns the sum of the given scalars modulo the curve order
func AddScalars(scalars ...externalapi.Scalar) (externalapi.Scalar, error) {
	var sum secp256k1.ModNScalar
	for i := range scalars {
		k, err := parseScalar(&scalars[i])
		if err != nil {
			return externalapi.Scalar{}, err
		}
		sum.Add(k)
	}
	return serializeScalar(&sum), nil
}

// NegateScalar returns -scalar modulo the curve order
func NegateScalar(scalar *externalapi.Scalar) (externalapi.Scalar, error) {
	k, err := parseScalar(scalar)
	if err != nil {
		return externalapi.Scalar{}, err
	}
	k.Negate()
	return serializeScalar(k), nil
}

// RandomScalar returns a uniformly random non-zero scalar
func RandomScalar() (externalapi.Scalar, error) {
	for {
		var candidate externalapi.Scalar
		_, err := rand.Read(candidate[:])
		if err != nil {
			return externalapi.Scalar{}, errors.WithStack(err)
		}
		k, err := parseScalar(&candidate)
		if err != nil || k.IsZero() {
			continue
		}
		return candidate, nil
	}
}
