package ldbstore

import (
	"github.com/mwnode/basenode/domain/chainstorage"
	"github.com/mwnode/basenode/infrastructure/db/database"
	"github.com/pkg/errors"
)

// HorizonSyncBegin opens a horizon sync scope. Every write transaction
// begun inside the scope journals the previous values of the keys it
// touches until the scope is committed or rolled back.
func (s *ChainStore) HorizonSyncBegin() error {
	s.horizonSyncLock.Lock()
	defer s.horizonSyncLock.Unlock()

	if s.horizonSyncInProgress {
		return errors.WithStack(chainstorage.ErrHorizonSyncInProgress)
	}
	err := s.db.Put(horizonSyncMarkerKey, []byte{1})
	if err != nil {
		return err
	}
	s.horizonSyncInProgress = true
	log.Debugf("Horizon sync scope opened")
	return nil
}

// HorizonSyncRollback restores every key touched since HorizonSyncBegin
// to its previous value and closes the scope
func (s *ChainStore) HorizonSyncRollback() error {
	s.horizonSyncLock.Lock()
	defer s.horizonSyncLock.Unlock()

	if !s.horizonSyncInProgress {
		return errors.WithStack(chainstorage.ErrNoHorizonSync)
	}

	dbTx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	restored, err := s.replayJournal(dbTx)
	if err != nil {
		return err
	}
	err = dbTx.Delete(horizonSyncMarkerKey)
	if err != nil {
		return err
	}
	err = dbTx.Commit()
	if err != nil {
		return err
	}
	s.horizonSyncInProgress = false
	log.Infof("Horizon sync rolled back, restored %d keys", restored)
	return nil
}

// replayJournal stages the restoration of every journaled key together
// with the deletion of the journal itself
func (s *ChainStore) replayJournal(dbTx database.Transaction) (int, error) {
	cursor, err := s.db.Cursor(journalBucket)
	if err != nil {
		return 0, err
	}
	defer cursor.Close()

	restored := 0
	for ok := cursor.First(); ok; ok = cursor.Next() {
		entryKey, err := cursor.Key()
		if err != nil {
			return 0, err
		}
		entry, err := cursor.Value()
		if err != nil {
			return 0, err
		}
		if len(entry) == 0 {
			return 0, errors.Errorf("empty journal entry at %s", entryKey)
		}

		originalKeyBytes := make([]byte, len(entryKey.Suffix()))
		copy(originalKeyBytes, entryKey.Suffix())
		originalKey := database.RawKey(originalKeyBytes)

		switch entry[0] {
		case journalFlagAbsent:
			err = dbTx.Delete(originalKey)
		case journalFlagPresent:
			err = dbTx.Put(originalKey, entry[1:])
		default:
			err = errors.Errorf("unknown journal flag %d at %s", entry[0], entryKey)
		}
		if err != nil {
			return 0, err
		}
		err = dbTx.Delete(journalBucket.Key(originalKeyBytes))
		if err != nil {
			return 0, err
		}
		restored++
	}
	return restored, nil
}

// HorizonSyncCommit makes everything written since HorizonSyncBegin
// permanent and closes the scope
func (s *ChainStore) HorizonSyncCommit() error {
	s.horizonSyncLock.Lock()
	defer s.horizonSyncLock.Unlock()

	if !s.horizonSyncInProgress {
		return errors.WithStack(chainstorage.ErrNoHorizonSync)
	}

	dbTx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	cursor, err := s.db.Cursor(journalBucket)
	if err != nil {
		return err
	}
	defer cursor.Close()
	for ok := cursor.First(); ok; ok = cursor.Next() {
		entryKey, err := cursor.Key()
		if err != nil {
			return err
		}
		err = dbTx.Delete(database.RawKey(entryKey.Bytes()))
		if err != nil {
			return err
		}
	}
	err = dbTx.Delete(horizonSyncMarkerKey)
	if err != nil {
		return err
	}
	err = dbTx.Commit()
	if err != nil {
		return err
	}
	s.horizonSyncInProgress = false
	log.Infof("Horizon sync committed")
	return nil
}
