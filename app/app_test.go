package app

import (
	"os"
	"testing"

	"github.com/mwnode/basenode/domain/dagconfig"
	"github.com/mwnode/basenode/infrastructure/config"
)

func newTestConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.RPCListeners = []string{"127.0.0.1:0"}
	cfg.DBCacheSize = 8
	cfg.ActiveNetParams = &dagconfig.SimnetParams
	return cfg
}

func TestOpenDBWritesVersion(t *testing.T) {
	cfg := newTestConfig(t)
	db, err := openDB(cfg)
	if err != nil {
		t.Fatalf("TestOpenDBWritesVersion: openDB: %+v", err)
	}
	err = db.Close()
	if err != nil {
		t.Fatalf("TestOpenDBWritesVersion: Close: %+v", err)
	}

	isVersionFileFound, err := checkDatabaseVersion(databasePath(cfg))
	if err != nil {
		t.Fatalf("TestOpenDBWritesVersion: checkDatabaseVersion: %+v", err)
	}
	if !isVersionFileFound {
		t.Fatalf("TestOpenDBWritesVersion: the version file was not written")
	}

	db, err = openDB(cfg)
	if err != nil {
		t.Fatalf("TestOpenDBWritesVersion: reopening: %+v", err)
	}
	err = db.Close()
	if err != nil {
		t.Fatalf("TestOpenDBWritesVersion: Close: %+v", err)
	}
}

func TestOpenDBRejectsUnknownVersion(t *testing.T) {
	cfg := newTestConfig(t)
	dbPath := databasePath(cfg)
	err := os.MkdirAll(dbPath, 0700)
	if err != nil {
		t.Fatalf("TestOpenDBRejectsUnknownVersion: MkdirAll: %s", err)
	}
	err = os.WriteFile(versionFilePath(dbPath), []byte("7"), 0600)
	if err != nil {
		t.Fatalf("TestOpenDBRejectsUnknownVersion: WriteFile: %s", err)
	}

	_, err = openDB(cfg)
	if err == nil {
		t.Fatalf("TestOpenDBRejectsUnknownVersion: expected an error")
	}
}

func TestComponentManagerRollsBackUnfinishedHorizonSync(t *testing.T) {
	cfg := newTestConfig(t)
	db, err := openDB(cfg)
	if err != nil {
		t.Fatalf("TestComponentManagerRollsBackUnfinishedHorizonSync: openDB: %+v", err)
	}
	defer db.Close()

	componentManager, err := NewComponentManager(cfg, db)
	if err != nil {
		t.Fatalf("TestComponentManagerRollsBackUnfinishedHorizonSync: NewComponentManager: %+v", err)
	}
	err = componentManager.ChainStore().HorizonSyncBegin()
	if err != nil {
		t.Fatalf("TestComponentManagerRollsBackUnfinishedHorizonSync: HorizonSyncBegin: %+v", err)
	}

	// A second manager over the same database finds the unfinished session
	componentManager, err = NewComponentManager(cfg, db)
	if err != nil {
		t.Fatalf("TestComponentManagerRollsBackUnfinishedHorizonSync: NewComponentManager: %+v", err)
	}
	err = componentManager.ChainStore().HorizonSyncBegin()
	if err != nil {
		t.Fatalf("TestComponentManagerRollsBackUnfinishedHorizonSync: the unfinished sync was not rolled back: %+v", err)
	}
	err = componentManager.ChainStore().HorizonSyncRollback()
	if err != nil {
		t.Fatalf("TestComponentManagerRollsBackUnfinishedHorizonSync: HorizonSyncRollback: %+v", err)
	}
}

func TestComponentManagerStartStop(t *testing.T) {
	cfg := newTestConfig(t)
	db, err := openDB(cfg)
	if err != nil {
		t.Fatalf("TestComponentManagerStartStop: openDB: %+v", err)
	}
	defer db.Close()

	componentManager, err := NewComponentManager(cfg, db)
	if err != nil {
		t.Fatalf("TestComponentManagerStartStop: NewComponentManager: %+v", err)
	}
	err = componentManager.Start()
	if err != nil {
		t.Fatalf("TestComponentManagerStartStop: Start: %+v", err)
	}
	componentManager.Stop()
	componentManager.Stop()
}
