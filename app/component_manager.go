package app

import (
	"sync/atomic"

	"github.com/mwnode/basenode/domain/chainstorage"
	"github.com/mwnode/basenode/domain/chainstorage/ldbstore"
	"github.com/mwnode/basenode/infrastructure/config"
	infrastructuredatabase "github.com/mwnode/basenode/infrastructure/db/database"
	"github.com/mwnode/basenode/infrastructure/network/banmanager"
	"github.com/mwnode/basenode/infrastructure/network/syncrpc"
	"github.com/pkg/errors"
)

// ComponentManager is a wrapper for all the node services
type ComponentManager struct {
	cfg        *config.Config
	chainStore *ldbstore.ChainStore
	banManager *banmanager.BanManager
	syncServer *syncrpc.Server

	started, shutdown int32
}

// Start launches all the node services.
func (a *ComponentManager) Start() error {
	// Already started?
	if atomic.AddInt32(&a.started, 1) != 1 {
		return nil
	}

	log.Tracef("Starting the node")

	err := a.syncServer.Start()
	if err != nil {
		return errors.Wrap(err, "error starting the sync server")
	}
	return nil
}

// Stop gracefully shuts down all the node services.
func (a *ComponentManager) Stop() {
	// Make sure this only happens once.
	if atomic.AddInt32(&a.shutdown, 1) != 1 {
		log.Infof("The node is already in the process of shutting down")
		return
	}

	log.Warnf("The node is shutting down")

	err := a.syncServer.Stop()
	if err != nil {
		log.Errorf("Error stopping the sync server: %+v", err)
	}
}

// NewComponentManager returns a new ComponentManager instance.
// Use Start() to begin all services within this ComponentManager
func NewComponentManager(cfg *config.Config, db infrastructuredatabase.Database) (*ComponentManager, error) {
	chainStore, err := ldbstore.New(db, cfg.NetParams())
	if err != nil {
		return nil, err
	}

	// Undo a horizon sync that was interrupted by a crash
	err = chainStore.HorizonSyncRollback()
	if err == nil {
		log.Warnf("Rolled back an unfinished horizon sync")
	} else if !errors.Is(err, chainstorage.ErrNoHorizonSync) {
		return nil, err
	}

	metadata, err := chainStore.FetchChainMetadata()
	if err != nil {
		return nil, err
	}
	log.Infof("Chain tip is %s at height %d, pruned up to height %d",
		metadata.BestBlock, metadata.ChainHeight, metadata.EffectivePrunedHeight)

	syncServer := syncrpc.NewServer(syncrpc.NewHandler(chainStore), cfg.RPCListeners)

	return &ComponentManager{
		cfg:        cfg,
		chainStore: chainStore,
		banManager: banmanager.New(db),
		syncServer: syncServer,
	}, nil
}

// ChainStore returns the chain store associated with this ComponentManager
func (a *ComponentManager) ChainStore() *ldbstore.ChainStore {
	return a.chainStore
}

// BanManager returns the BanManager associated with this ComponentManager
func (a *ComponentManager) BanManager() *banmanager.BanManager {
	return a.banManager
}
