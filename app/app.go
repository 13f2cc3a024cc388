package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/mwnode/basenode/infrastructure/config"
	"github.com/mwnode/basenode/infrastructure/logger"
	"github.com/mwnode/basenode/util/panics"
	"github.com/pkg/errors"
)

// StartApp loads the configuration, opens the chain database and serves
// sync requests until the process is interrupted
func StartApp() error {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			return nil
		}
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	logger.InitLog(cfg.LogFile, cfg.ErrLogFile)
	defer logger.BackendLog.Close()
	defer panics.HandlePanic(log, "MAIN", nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg)
}

func run(ctx context.Context, cfg *config.Config) error {
	log.Infof("Starting the node on %s", cfg.NetParams().Name)

	db, err := openDB(cfg)
	if err != nil {
		log.Errorf("Loading database failed: %+v", err)
		return err
	}
	defer func() {
		log.Infof("Gracefully shutting down the database...")
		err := db.Close()
		if err != nil {
			log.Errorf("Failed to close the database: %s", err)
		}
	}()

	componentManager, err := NewComponentManager(cfg, db)
	if err != nil {
		log.Errorf("Unable to start the node: %+v", err)
		return err
	}
	err = componentManager.Start()
	if err != nil {
		log.Errorf("%+v", err)
		return err
	}
	defer componentManager.Stop()

	<-ctx.Done()
	log.Infof("Received an interrupt signal")
	return nil
}
