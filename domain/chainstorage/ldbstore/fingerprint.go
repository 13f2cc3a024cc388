package ldbstore

import (
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/utils/multiset"
)

// Fingerprint returns a multiset hash over the key and value of every
// record in the store. Two stores holding the same records have the
// same fingerprint regardless of the order they were written in.
func (s *ChainStore) Fingerprint() (*externalapi.DomainHash, error) {
	fingerprint := multiset.New()
	for _, bucket := range allBuckets {
		cursor, err := s.db.Cursor(bucket)
		if err != nil {
			return nil, err
		}
		for ok := cursor.First(); ok; ok = cursor.Next() {
			key, err := cursor.Key()
			if err != nil {
				cursor.Close()
				return nil, err
			}
			value, err := cursor.Value()
			if err != nil {
				cursor.Close()
				return nil, err
			}
			keyBytes := key.Bytes()
			record := make([]byte, 0, len(keyBytes)+len(value))
			record = append(record, keyBytes...)
			record = append(record, value...)
			fingerprint.Add(record)
		}
		err = cursor.Close()
		if err != nil {
			return nil, err
		}
	}
	return fingerprint.Hash(), nil
}
