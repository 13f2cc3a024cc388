package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/mwnode/basenode/app/protocol/syncpeers"
	"github.com/mwnode/basenode/infrastructure/logger"
	"github.com/pkg/errors"
)

const (
	defaultHomeDirname              = ".basenode"
	defaultDataDirname              = "data"
	defaultLogDirname               = "logs"
	defaultLogFilename              = "basenode.log"
	defaultErrLogFilename           = "basenode_err.log"
	defaultLogLevel                 = "info"
	defaultPeerBanDuration          = 2 * time.Hour
	defaultShortTermPeerBanDuration = 30 * time.Minute
	defaultRPCDeadline              = 5 * time.Minute
	defaultRPCListen                = "0.0.0.0:18142"
	defaultDBCacheSizeMiB           = 64
)

var (
	// DefaultHomeDir is the default home directory of the node
	DefaultHomeDir = filepath.Join("~", defaultHomeDirname)

	defaultDataDir = filepath.Join(DefaultHomeDir, defaultDataDirname)
	defaultLogDir  = filepath.Join(DefaultHomeDir, defaultLogDirname)
)

// SyncPeerFlags controls how sync peers are picked and punished
type SyncPeerFlags struct {
	RandomSyncPeer           bool          `long:"randomsyncpeer" description:"Pick sync peers at random instead of by lowest latency"`
	PeerBanDuration          time.Duration `long:"peerbanduration" description:"How long to ban peers that send invalid data. Valid time units are {s, m, h}"`
	ShortTermPeerBanDuration time.Duration `long:"shorttermpeerbanduration" description:"How long to ban peers that misbehave during a sync. Valid time units are {s, m, h}"`
}

// Flags defines the configuration options of the node.
//
// See LoadConfig for details on the configuration load process.
type Flags struct {
	DataDir      string        `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir       string        `long:"logdir" description:"Directory to log output"`
	LogLevel     string        `short:"d" long:"loglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	RPCDeadline  time.Duration `long:"rpcdeadline" description:"Deadline of a single sync RPC stream. Valid time units are {s, m, h}"`
	RPCListeners []string      `long:"rpclisten" description:"Add an interface/port to serve sync RPCs on (default 0.0.0.0:18142)"`
	DBCacheSize  int           `long:"dbcachesize" description:"Size of the database cache in MiB"`
	SyncPeerFlags
	NetworkFlags
}

// Config holds the resolved configuration of the node
type Config struct {
	*Flags
	LogFile    string
	ErrLogFile string
}

// DefaultConfig returns the configuration used when no flags are given
func DefaultConfig() *Config {
	config := &Config{
		Flags: &Flags{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			LogLevel:    defaultLogLevel,
			RPCDeadline: defaultRPCDeadline,
			DBCacheSize: defaultDBCacheSizeMiB,
			SyncPeerFlags: SyncPeerFlags{
				PeerBanDuration:          defaultPeerBanDuration,
				ShortTermPeerBanDuration: defaultShortTermPeerBanDuration,
			},
		},
	}
	return config
}

func newConfigParser(cfgFlags *Flags, options flags.Options) *flags.Parser {
	return flags.NewParser(cfgFlags, options)
}

// LoadConfig initializes and parses the config using command line
// options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Override them with any specified command line options
//  3. Resolve the network and namespace the data and log directories by it
func LoadConfig(args []string) (*Config, error) {
	config := DefaultConfig()
	parser := newConfigParser(config.Flags, flags.HelpFlag)
	_, err := parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, err
		}
		return nil, errors.Wrap(err, "error parsing command line arguments")
	}

	err = config.ResolveNetwork(parser)
	if err != nil {
		return nil, err
	}

	if config.RPCDeadline <= 0 {
		return nil, errors.Errorf("rpcdeadline must be positive, got %s", config.RPCDeadline)
	}
	if len(config.RPCListeners) == 0 {
		config.RPCListeners = []string{defaultRPCListen}
	}
	if config.DBCacheSize <= 0 {
		return nil, errors.Errorf("dbcachesize must be positive, got %d", config.DBCacheSize)
	}
	if config.PeerBanDuration < time.Second || config.ShortTermPeerBanDuration < time.Second {
		return nil, errors.Errorf("ban durations may not be shorter than one second")
	}

	// Append the network type to the data and log directories so they
	// are namespaced per network.
	config.DataDir = filepath.Join(cleanAndExpandPath(config.DataDir), config.NetParams().Name)
	config.LogDir = filepath.Join(cleanAndExpandPath(config.LogDir), config.NetParams().Name)
	config.LogFile = filepath.Join(config.LogDir, defaultLogFilename)
	config.ErrLogFile = filepath.Join(config.LogDir, defaultErrLogFilename)

	err = logger.ParseAndSetLogLevels(config.LogLevel)
	if err != nil {
		return nil, err
	}
	return config, nil
}

// SyncPolicy returns the sync peer policy described by the config
func (config *Config) SyncPolicy() *syncpeers.Policy {
	return &syncpeers.Policy{
		RandomSyncPeerWithChain:  config.RandomSyncPeer,
		PeerBanDuration:          config.PeerBanDuration,
		ShortTermPeerBanDuration: config.ShortTermPeerBanDuration,
	}
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = strings.Replace(path, "~", homeDir, 1)
		}
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
