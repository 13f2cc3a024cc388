package commitment

import (
	"encoding/binary"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/utils/hashes"
	"github.com/pkg/errors"
)

// ErrInvalidPoint is returned when bytes don't encode a curve point
var ErrInvalidPoint = errors.New("invalid curve point")

// Point is a secp256k1 curve point. The zero value is the point at infinity.
type Point struct {
	jacobian secp256k1.JacobianPoint
}

var generatorH = deriveGeneratorH()

// deriveGeneratorH derives the value generator with try-and-increment
// so that nobody knows its discrete log relative to G
func deriveGeneratorH() Point {
	for counter := uint64(0); ; counter++ {
		writer := hashes.NewGeneratorHWriter()
		writer.WriteUint64(counter)
		candidate := writer.Finalize()

		var x, y secp256k1.FieldVal
		if overflow := x.SetByteSlice(candidate.ByteSlice()); overflow {
			continue
		}
		if !secp256k1.DecompressY(&x, false, &y) {
			continue
		}
		var point Point
		point.jacobian.X.Set(&x)
		point.jacobian.Y.Set(&y)
		point.jacobian.Z.SetInt(1)
		return point
	}
}

// ParsePoint parses a compressed point. All-zero bytes are the point at infinity.
func ParsePoint(serialized *externalapi.Commitment) (*Point, error) {
	if serialized.IsZero() {
		return &Point{}, nil
	}
	publicKey, err := secp256k1.ParsePubKey(serialized[:])
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPoint, "%s: %s", serialized, err)
	}
	point := &Point{}
	publicKey.AsJacobian(&point.jacobian)
	return point, nil
}

// IsInfinity returns whether the point is the point at infinity
func (p *Point) IsInfinity() bool {
	return (p.jacobian.X.IsZero() && p.jacobian.Y.IsZero()) || p.jacobian.Z.IsZero()
}

// Add returns p + other
func (p *Point) Add(other *Point) *Point {
	result := &Point{}
	secp256k1.AddNonConst(&p.jacobian, &other.jacobian, &result.jacobian)
	return result
}

// Negate returns -p
func (p *Point) Negate() *Point {
	if p.IsInfinity() {
		return &Point{}
	}
	result := &Point{jacobian: p.jacobian}
	result.jacobian.ToAffine()
	result.jacobian.Y.Negate(1).Normalize()
	return result
}

// Sub returns p - other
func (p *Point) Sub(other *Point) *Point {
	return p.Add(other.Negate())
}

// Serialize returns the compressed encoding of the point
func (p *Point) Serialize() externalapi.Commitment {
	var serialized externalapi.Commitment
	if p.IsInfinity() {
		return serialized
	}
	affine := p.jacobian
	affine.ToAffine()
	copy(serialized[:], secp256k1.NewPublicKey(&affine.X, &affine.Y).SerializeCompressed())
	return serialized
}

// Equal returns whether p and other are the same point
func (p *Point) Equal(other *Point) bool {
	return p.Serialize() == other.Serialize()
}

func scalarMult(k *secp256k1.ModNScalar, point *Point) *Point {
	result := &Point{}
	if k.IsZero() || point.IsInfinity() {
		return result
	}
	secp256k1.ScalarMultNonConst(k, &point.jacobian, &result.jacobian)
	return result
}

func scalarBaseMult(k *secp256k1.ModNScalar) *Point {
	result := &Point{}
	if k.IsZero() {
		return result
	}
	secp256k1.ScalarBaseMultNonConst(k, &result.jacobian)
	return result
}

func valueScalar(value uint64) *secp256k1.ModNScalar {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value)
	var k secp256k1.ModNScalar
	k.SetByteSlice(buf[:])
	return &k
}

// ValuePoint returns value*H
func ValuePoint(value uint64) *Point {
	return scalarMult(valueScalar(value), &generatorH)
}

// BlindingPoint returns blinding*G
func BlindingPoint(blinding *externalapi.Scalar) (*Point, error) {
	k, err := parseScalar(blinding)
	if err != nil {
		return nil, err
	}
	return scalarBaseMult(k), nil
}

// Commit returns the Pedersen commitment value*H + blinding*G
func Commit(value uint64, blinding *externalapi.Scalar) (externalapi.Commitment, error) {
	blindingPoint, err := BlindingPoint(blinding)
	if err != nil {
		return externalapi.Commitment{}, err
	}
	return blindingPoint.Add(ValuePoint(value)).Serialize(), nil
}

// PublicKeyFromScalar returns scalar*G serialized
func PublicKeyFromScalar(scalar *externalapi.Scalar) (externalapi.PublicKey, error) {
	point, err := BlindingPoint(scalar)
	if err != nil {
		return externalapi.PublicKey{}, err
	}
	return point.Serialize(), nil
}

// Sum parses and adds up the given points
func Sum(serializedPoints ...externalapi.Commitment) (*Point, error) {
	sum := &Point{}
	for i := range serializedPoints {
		point, err := ParsePoint(&serializedPoints[i])
		if err != nil {
			return nil, err
		}
		sum = sum.Add(point)
	}
	return sum, nil
}
