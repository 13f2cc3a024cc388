package ldb

import (
	"github.com/mwnode/basenode/infrastructure/db/database"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDBTransaction is a thin wrapper around native leveldb
// batches. Writes are staged in memory and applied to the
// database atomically on Commit.
type LevelDBTransaction struct {
	db    *LevelDB
	batch *leveldb.Batch
	// staged maps a key to its pending value. A nil value marks a
	// pending deletion.
	staged   map[string][]byte
	isClosed bool
}

// Commit commits whatever changes were made to the database
// within this transaction.
func (tx *LevelDBTransaction) Commit() error {
	if tx.isClosed {
		return errors.New("cannot commit a closed transaction")
	}

	tx.isClosed = true
	err := tx.db.ldb.Write(tx.batch, nil)
	tx.batch = nil
	tx.staged = nil
	return errors.WithStack(err)
}

// Rollback rolls back whatever changes were made to the
// database within this transaction.
func (tx *LevelDBTransaction) Rollback() error {
	if tx.isClosed {
		return errors.New("cannot rollback a closed transaction")
	}

	tx.isClosed = true
	tx.batch.Reset()
	tx.batch = nil
	tx.staged = nil
	return nil
}

// RollbackUnlessClosed rolls back changes that were made to
// the database within the transaction, unless the transaction
// had already been closed using either Rollback or Commit.
func (tx *LevelDBTransaction) RollbackUnlessClosed() error {
	if tx.isClosed {
		return nil
	}
	return tx.Rollback()
}

// Put sets the value for the given key. It overwrites
// any previous value for that key.
func (tx *LevelDBTransaction) Put(key *database.Key, value []byte) error {
	if tx.isClosed {
		return errors.New("cannot put into a closed transaction")
	}

	keyBytes := key.Bytes()
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	tx.batch.Put(keyBytes, valueCopy)
	tx.staged[string(keyBytes)] = valueCopy
	return nil
}

// Get gets the value for the given key. It returns
// ErrNotFound if the given key does not exist.
func (tx *LevelDBTransaction) Get(key *database.Key) ([]byte, error) {
	if tx.isClosed {
		return nil, errors.New("cannot get from a closed transaction")
	}

	if value, ok := tx.staged[string(key.Bytes())]; ok {
		if value == nil {
			return nil, errors.Wrapf(database.ErrNotFound, "key %s not found", key)
		}
		return value, nil
	}
	return tx.db.Get(key)
}

// Has returns true if the database does contains the
// given key.
func (tx *LevelDBTransaction) Has(key *database.Key) (bool, error) {
	if tx.isClosed {
		return false, errors.New("cannot has from a closed transaction")
	}

	if value, ok := tx.staged[string(key.Bytes())]; ok {
		return value != nil, nil
	}
	return tx.db.Has(key)
}

// Delete deletes the value for the given key. Will not
// return an error if the key doesn't exist.
func (tx *LevelDBTransaction) Delete(key *database.Key) error {
	if tx.isClosed {
		return errors.New("cannot delete from a closed transaction")
	}

	keyBytes := key.Bytes()
	tx.batch.Delete(keyBytes)
	tx.staged[string(keyBytes)] = nil
	return nil
}

// Cursor begins a new cursor over the given bucket. The
// cursor does not see writes staged in this transaction.
func (tx *LevelDBTransaction) Cursor(bucket *database.Bucket) (database.Cursor, error) {
	if tx.isClosed {
		return nil, errors.New("cannot open a cursor from a closed transaction")
	}

	return tx.db.Cursor(bucket)
}
