package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mwnode/basenode/infrastructure/config"
	"github.com/mwnode/basenode/infrastructure/db/database/ldb"
	"github.com/pkg/errors"
)

const (
	databaseDirname        = "db"
	currentDatabaseVersion = 1
)

func databasePath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, databaseDirname)
}

// openDB opens the chain database of cfg, creating it if it doesn't exist
// and refusing to open it if it was written by an incompatible version
func openDB(cfg *config.Config) (*ldb.LevelDB, error) {
	dbPath := databasePath(cfg)
	err := os.MkdirAll(dbPath, 0700)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	isVersionFileFound, err := checkDatabaseVersion(dbPath)
	if err != nil {
		return nil, err
	}

	log.Infof("Loading database from '%s'", dbPath)
	db, err := ldb.NewLevelDB(dbPath, cfg.DBCacheSize)
	if err != nil {
		return nil, err
	}

	if !isVersionFileFound {
		err = createDatabaseVersionFile(dbPath)
		if err != nil {
			closeErr := db.Close()
			if closeErr != nil {
				log.Errorf("Error closing the database: %s", closeErr)
			}
			return nil, err
		}
	}
	return db, nil
}

// checkDatabaseVersion returns whether dbPath holds a version file. A
// missing file means the database is new.
func checkDatabaseVersion(dbPath string) (isVersionFileFound bool, err error) {
	versionBytes, err := os.ReadFile(versionFilePath(dbPath))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}

	databaseVersion, err := strconv.Atoi(strings.TrimSpace(string(versionBytes)))
	if err != nil {
		return true, errors.Wrapf(err, "malformed database version file")
	}
	if databaseVersion != currentDatabaseVersion {
		return true, errors.Errorf("invalid database version %d. Expected version: %d",
			databaseVersion, currentDatabaseVersion)
	}
	return true, nil
}

func createDatabaseVersionFile(dbPath string) error {
	versionString := strconv.Itoa(currentDatabaseVersion)
	err := os.WriteFile(versionFilePath(dbPath), []byte(versionString), 0600)
	return errors.WithStack(err)
}

func versionFilePath(dbPath string) string {
	return filepath.Join(dbPath, "version")
}
