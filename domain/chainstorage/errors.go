package chainstorage

import (
	"github.com/mwnode/basenode/infrastructure/db/database"
	"github.com/pkg/errors"
)

// ErrValueNotFound denotes that the requested value is not in the store
var ErrValueNotFound = errors.Wrap(database.ErrNotFound, "value not found")

// ErrOutputSpent denotes that the requested output exists but is spent
// at the tip, or was only ever stored pruned
var ErrOutputSpent = errors.New("output is spent")

// ErrHorizonSyncInProgress is returned when a horizon sync scope is
// opened while another one is open
var ErrHorizonSyncInProgress = errors.New("a horizon sync is already in progress")

// ErrNoHorizonSync is returned when a horizon sync scope is closed
// while none is open
var ErrNoHorizonSync = errors.New("no horizon sync is in progress")

// ErrUnexpectedLeafIndex is returned when a leaf is inserted at an
// index other than the next free one
var ErrUnexpectedLeafIndex = errors.New("unexpected MMR leaf index")

// IsNotFoundError checks whether an error is an ErrValueNotFound
func IsNotFoundError(err error) bool {
	return database.IsNotFoundError(err)
}
