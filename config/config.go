package config

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	ConfigName = "config"
	ConfigType = "toml"

	DefaultNodeURL   = "https://api.hive.blog"
	DefaultSignerURL = "https://hivesigner.com"
	DefaultBaseURL   = "https://hive.blog"
	DefaultAppName   = "hivebridge/1.0"
	DefaultRelay     = "127.0.0.1:8090"
)

type PlatformConfig struct {
	Account string
	Weight  int
}

type PollerConfig struct {
	TimeoutMs  int
	IntervalMs int
}

type StreamConfig struct {
	PollIntervalMs int
	Irreversible   bool
	CursorPath     string
	HistoryBlocks  int
}

type RelayConfig struct {
	Listen string
}

type Config struct {
	DataDir     string
	NodeURL     string
	SignerURL   string
	SignerToken string
	AppName     string
	BaseURL     string
	LogLevel    string
	LogPath     string
	LogAge      int
	UseNTP      bool
	// PprofListen serves the profiler while watching; empty disables it.
	PprofListen string

	Platform PlatformConfig
	Poller   PollerConfig
	Stream   StreamConfig
	Relay    RelayConfig
}

// DefaultConfig contains reasonable default settings.
var DefaultConfig = Config{
	DataDir:   DefaultDataDir(),
	NodeURL:   DefaultNodeURL,
	SignerURL: DefaultSignerURL,
	AppName:   DefaultAppName,
	BaseURL:   DefaultBaseURL,
	LogLevel:  "info",
	LogAge:    7,
	Platform: PlatformConfig{
		Account: "hivebridge",
		Weight:  300,
	},
	Poller: PollerConfig{
		TimeoutMs:  60000,
		IntervalMs: 3000,
	},
	Stream: StreamConfig{
		PollIntervalMs: 3000,
		CursorPath:     "cursor",
		HistoryBlocks:  20,
	},
	Relay: RelayConfig{
		Listen: DefaultRelay,
	},
}

func DefaultDataDir() string {
	home, err := homedir.Dir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".hivebridge")
}

// ExpandPath resolves a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("DataDir", d.DataDir)
	v.SetDefault("NodeURL", d.NodeURL)
	v.SetDefault("SignerURL", d.SignerURL)
	v.SetDefault("SignerToken", d.SignerToken)
	v.SetDefault("AppName", d.AppName)
	v.SetDefault("BaseURL", d.BaseURL)
	v.SetDefault("LogLevel", d.LogLevel)
	v.SetDefault("LogPath", d.LogPath)
	v.SetDefault("LogAge", d.LogAge)
	v.SetDefault("UseNTP", d.UseNTP)
	v.SetDefault("PprofListen", d.PprofListen)
	v.SetDefault("Platform.Account", d.Platform.Account)
	v.SetDefault("Platform.Weight", d.Platform.Weight)
	v.SetDefault("Poller.TimeoutMs", d.Poller.TimeoutMs)
	v.SetDefault("Poller.IntervalMs", d.Poller.IntervalMs)
	v.SetDefault("Stream.PollIntervalMs", d.Stream.PollIntervalMs)
	v.SetDefault("Stream.Irreversible", d.Stream.Irreversible)
	v.SetDefault("Stream.CursorPath", d.Stream.CursorPath)
	v.SetDefault("Stream.HistoryBlocks", d.Stream.HistoryBlocks)
	v.SetDefault("Relay.Listen", d.Relay.Listen)
}

// Load reads <dataDir>/config.toml. A missing file yields the defaults with
// DataDir set to dataDir.
func Load(dataDir string) (*Config, error) {
	dataDir = ExpandPath(dataDir)
	defaults := DefaultConfig
	defaults.DataDir = dataDir

	v := viper.New()
	v.SetConfigName(ConfigName)
	v.SetConfigType(ConfigType)
	v.AddConfigPath(dataDir)
	setDefaults(v, defaults)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, errors.Wrap(err, "read config")
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.DataDir = ExpandPath(cfg.DataDir)
	cfg.LogPath = ExpandPath(cfg.LogPath)
	return cfg, nil
}

// ResolvePath places relative paths under DataDir.
func (c *Config) ResolvePath(path string) string {
	path = ExpandPath(path)
	if path == "" || filepath.IsAbs(path) || c.DataDir == "" {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

func EnsureDataDir(dir string) error {
	return os.MkdirAll(ExpandPath(dir), 0700)
}
