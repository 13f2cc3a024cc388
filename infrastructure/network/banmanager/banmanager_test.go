package banmanager

import (
	"context"
	"testing"
	"time"

	"github.com/mwnode/basenode/infrastructure/db/database/ldb"
	"github.com/mwnode/basenode/infrastructure/network/netadapter/id"
)

func newTestID(t *testing.T) *id.ID {
	nodeID, err := id.GenerateID()
	if err != nil {
		t.Fatalf("GenerateID: %s", err)
	}
	return nodeID
}

func TestBanPeerUntil(t *testing.T) {
	dbPath := t.TempDir()
	db, err := ldb.NewLevelDB(dbPath, 8)
	if err != nil {
		t.Fatalf("TestBanPeerUntil: NewLevelDB: %s", err)
	}

	now := time.Unix(1_700_000_000, 0)
	banManager := New(db)
	banManager.timeNow = func() time.Time { return now }

	banned, notBanned := newTestID(t), newTestID(t)
	err = banManager.BanPeerUntil(context.Background(), banned, time.Hour, "sent an invalid kernel")
	if err != nil {
		t.Fatalf("TestBanPeerUntil: BanPeerUntil: %s", err)
	}
	// A shorter ban doesn't shorten the existing one
	err = banManager.BanPeerUntil(context.Background(), banned, time.Minute, "sent an empty response")
	if err != nil {
		t.Fatalf("TestBanPeerUntil: BanPeerUntil: %s", err)
	}

	isBanned, err := banManager.IsBanned(banned)
	if err != nil {
		t.Fatalf("TestBanPeerUntil: IsBanned: %s", err)
	}
	if !isBanned {
		t.Fatalf("TestBanPeerUntil: expected %s to be banned", banned)
	}
	isBanned, err = banManager.IsBanned(notBanned)
	if err != nil {
		t.Fatalf("TestBanPeerUntil: IsBanned: %s", err)
	}
	if isBanned {
		t.Fatalf("TestBanPeerUntil: expected %s not to be banned", notBanned)
	}

	err = db.Close()
	if err != nil {
		t.Fatalf("TestBanPeerUntil: Close: %s", err)
	}
	db, err = ldb.NewLevelDB(dbPath, 8)
	if err != nil {
		t.Fatalf("TestBanPeerUntil: NewLevelDB: %s", err)
	}
	defer db.Close()
	banManager = New(db)
	banManager.timeNow = func() time.Time { return now.Add(30 * time.Minute) }

	bannedPeers, err := banManager.BannedPeers()
	if err != nil {
		t.Fatalf("TestBanPeerUntil: BannedPeers: %s", err)
	}
	if len(bannedPeers) != 1 || !bannedPeers[0].ID.Equal(banned) {
		t.Fatalf("TestBanPeerUntil: expected the ban to survive a restart, got %+v", bannedPeers)
	}
	if bannedPeers[0].Reason != "sent an invalid kernel" || !bannedPeers[0].Until.Equal(now.Add(time.Hour)) {
		t.Fatalf("TestBanPeerUntil: unexpected ban %+v", bannedPeers[0])
	}

	banManager.timeNow = func() time.Time { return now.Add(2 * time.Hour) }
	isBanned, err = banManager.IsBanned(banned)
	if err != nil {
		t.Fatalf("TestBanPeerUntil: IsBanned: %s", err)
	}
	if isBanned {
		t.Fatalf("TestBanPeerUntil: expected the ban to expire")
	}
	bannedPeers, err = banManager.BannedPeers()
	if err != nil {
		t.Fatalf("TestBanPeerUntil: BannedPeers: %s", err)
	}
	if len(bannedPeers) != 0 {
		t.Fatalf("TestBanPeerUntil: expected no bans, got %d", len(bannedPeers))
	}
}

func TestUnban(t *testing.T) {
	db, err := ldb.NewLevelDB(t.TempDir(), 8)
	if err != nil {
		t.Fatalf("TestUnban: NewLevelDB: %s", err)
	}
	defer db.Close()
	banManager := New(db)

	nodeID := newTestID(t)
	err = banManager.BanPeerUntil(context.Background(), nodeID, time.Hour, "test")
	if err != nil {
		t.Fatalf("TestUnban: BanPeerUntil: %s", err)
	}
	err = banManager.Unban(nodeID)
	if err != nil {
		t.Fatalf("TestUnban: Unban: %s", err)
	}
	isBanned, err := banManager.IsBanned(nodeID)
	if err != nil {
		t.Fatalf("TestUnban: IsBanned: %s", err)
	}
	if isBanned {
		t.Fatalf("TestUnban: expected %s to be unbanned", nodeID)
	}

	err = banManager.BanPeerUntil(context.Background(), nodeID, 0, "test")
	if err == nil {
		t.Fatalf("TestUnban: expected an error for a zero duration ban")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = banManager.BanPeerUntil(ctx, nodeID, time.Hour, "test")
	if err == nil {
		t.Fatalf("TestUnban: expected an error for a cancelled context")
	}
}
