package banmanager

import (
	"context"
	"sync"
	"time"

	"github.com/mwnode/basenode/domain/consensus/database/serialization"
	"github.com/mwnode/basenode/infrastructure/db/database"
	"github.com/mwnode/basenode/infrastructure/network/netadapter/id"
	"github.com/pkg/errors"
)

var bannedPeersBucket = database.MakeBucket([]byte("banned-peers"))

const (
	banFieldUntil = iota + 1
	banFieldReason
)

// BannedPeer is a ban on a single node
type BannedPeer struct {
	ID     *id.ID
	Until  time.Time
	Reason string
}

// BanManager keeps track of banned nodes. Bans are persisted and lift
// by themselves once they expire.
type BanManager struct {
	database database.Database
	mutex    sync.Mutex
	timeNow  func() time.Time
}

// New returns a BanManager persisting its bans in db
func New(db database.Database) *BanManager {
	return &BanManager{
		database: db,
		timeNow:  time.Now,
	}
}

func banKey(nodeID *id.ID) *database.Key {
	return bannedPeersBucket.Key(nodeID.Bytes())
}

func serializeBan(ban *BannedPeer) []byte {
	w := serialization.NewRecordWriter()
	w.Uint64(banFieldUntil, uint64(ban.Until.UnixMilli()))
	w.Bytes(banFieldReason, []byte(ban.Reason))
	return w.Serialize()
}

func deserializeBan(nodeID *id.ID, data []byte) (*BannedPeer, error) {
	record, err := serialization.ParseRecord(data)
	if err != nil {
		return nil, err
	}
	return &BannedPeer{
		ID:     nodeID,
		Until:  time.UnixMilli(int64(record.Uint64(banFieldUntil))),
		Reason: string(record.Bytes(banFieldReason)),
	}, nil
}

func (bm *BanManager) fetchBan(nodeID *id.ID) (*BannedPeer, error) {
	data, err := bm.database.Get(banKey(nodeID))
	if err != nil {
		return nil, err
	}
	return deserializeBan(nodeID, data)
}

// BanPeerUntil bans nodeID for duration. An existing ban that lasts
// longer is kept.
func (bm *BanManager) BanPeerUntil(ctx context.Context, nodeID *id.ID, duration time.Duration, reason string) error {
	err := ctx.Err()
	if err != nil {
		return errors.WithStack(err)
	}
	if duration <= 0 {
		return errors.Errorf("invalid ban duration %s", duration)
	}

	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	ban := &BannedPeer{
		ID:     nodeID,
		Until:  bm.timeNow().Add(duration),
		Reason: reason,
	}
	existing, err := bm.fetchBan(nodeID)
	if err != nil && !database.IsNotFoundError(err) {
		return err
	}
	if err == nil && existing.Until.After(ban.Until) {
		log.Debugf("Peer %s is already banned until %s", nodeID, existing.Until)
		return nil
	}

	err = bm.database.Put(banKey(nodeID), serializeBan(ban))
	if err != nil {
		return err
	}
	log.Infof("Banned peer %s for %s: %s", nodeID, duration, reason)
	return nil
}

// IsBanned returns whether nodeID is currently banned. Expired bans are
// removed.
func (bm *BanManager) IsBanned(nodeID *id.ID) (bool, error) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	ban, err := bm.fetchBan(nodeID)
	if err != nil {
		if database.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	if bm.timeNow().Before(ban.Until) {
		return true, nil
	}
	log.Debugf("Ban on peer %s expired at %s", nodeID, ban.Until)
	return false, bm.database.Delete(banKey(nodeID))
}

// Unban lifts the ban on nodeID, if any
func (bm *BanManager) Unban(nodeID *id.ID) error {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	log.Infof("Unbanned peer %s", nodeID)
	return bm.database.Delete(banKey(nodeID))
}

// BannedPeers returns all the bans that have not expired yet
func (bm *BanManager) BannedPeers() ([]*BannedPeer, error) {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	cursor, err := bm.database.Cursor(bannedPeersBucket)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	now := bm.timeNow()
	var bannedPeers []*BannedPeer
	for ok := cursor.First(); ok; ok = cursor.Next() {
		key, err := cursor.Key()
		if err != nil {
			return nil, err
		}
		nodeID, err := id.NewID(key.Suffix())
		if err != nil {
			return nil, err
		}
		value, err := cursor.Value()
		if err != nil {
			return nil, err
		}
		ban, err := deserializeBan(nodeID, value)
		if err != nil {
			return nil, err
		}
		if now.Before(ban.Until) {
			bannedPeers = append(bannedPeers, ban)
		}
	}
	return bannedPeers, nil
}
