package multiset

import (
	"github.com/kaspanet/go-muhash"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// Multiset is an order-independent hash of a multiset of byte strings
type Multiset struct {
	ms *muhash.MuHash
}

// Add adds data to the multiset
func (m *Multiset) Add(data []byte) {
	m.ms.Add(data)
}

// Remove removes data from the multiset
func (m *Multiset) Remove(data []byte) {
	m.ms.Remove(data)
}

// Hash returns the hash of the multiset
func (m *Multiset) Hash() *externalapi.DomainHash {
	finalizedHash := m.ms.Finalize()
	finalizedHashAsByteArray := (*[externalapi.DomainHashSize]byte)(&finalizedHash)
	return externalapi.NewDomainHashFromByteArray(finalizedHashAsByteArray)
}

// Serialize returns the serialized multiset
func (m *Multiset) Serialize() []byte {
	return m.ms.Serialize()[:]
}

// Clone returns a clone of the multiset
func (m *Multiset) Clone() *Multiset {
	return &Multiset{ms: m.ms.Clone()}
}

// FromBytes deserializes the given bytes slice and returns a multiset.
func FromBytes(multisetBytes []byte) (*Multiset, error) {
	serialized := &muhash.SerializedMuHash{}
	if len(serialized) != len(multisetBytes) {
		return nil, errors.Errorf("mutliset bytes expected to be in length of %d but got %d",
			len(serialized), len(multisetBytes))
	}
	copy(serialized[:], multisetBytes)
	ms, err := muhash.DeserializeMuHash(serialized)
	if err != nil {
		return nil, err
	}

	return &Multiset{ms: ms}, nil
}

// New returns a new empty Multiset
func New() *Multiset {
	return &Multiset{ms: muhash.NewMuHash()}
}
