package id

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"

	"github.com/pkg/errors"
)

// IDLength is the length of an ID in bytes
const IDLength = 16

// ID identifies a remote node
type ID struct {
	bytes []byte
}

// GenerateID generates a new ID
func GenerateID() (*ID, error) {
	bytes := make([]byte, IDLength)
	_, err := rand.Read(bytes)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return NewID(bytes)
}

// NewID creates an ID from the given bytes
func NewID(bytes []byte) (*ID, error) {
	if len(bytes) != IDLength {
		return nil, errors.Errorf("invalid ID length %d, expected %d", len(bytes), IDLength)
	}
	idBytes := make([]byte, IDLength)
	copy(idBytes, bytes)
	return &ID{bytes: idBytes}, nil
}

// FromString parses an ID from its hex string representation
func FromString(idString string) (*ID, error) {
	bytes, err := hex.DecodeString(idString)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid ID %s", idString)
	}
	return NewID(bytes)
}

// Bytes returns a copy of the bytes of the ID
func (id *ID) Bytes() []byte {
	idBytes := make([]byte, len(id.bytes))
	copy(idBytes, id.bytes)
	return idBytes
}

// Equal returns whether id equals to other
func (id *ID) Equal(other *ID) bool {
	if id == nil || other == nil {
		return id == other
	}
	return bytes.Equal(id.bytes, other.bytes)
}

func (id *ID) String() string {
	return hex.EncodeToString(id.bytes)
}
