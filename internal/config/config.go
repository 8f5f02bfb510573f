// Package config loads engine settings from an optional YAML file, the
// environment and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working and data directories.
const FileName = "shogiplay.yaml"

// EnvPrefix prefixes environment overrides, e.g. SHOGIPLAY_HASH_MB.
const EnvPrefix = "SHOGIPLAY"

// Config holds every setting the engine reads at startup. USI setoption
// commands may override the engine-facing ones later.
type Config struct {
	HashMB           int    `mapstructure:"hash_mb" yaml:"hash_mb"`
	Threads          int    `mapstructure:"threads" yaml:"threads"`
	EvalFile         string `mapstructure:"eval_file" yaml:"eval_file"`
	BookFile         string `mapstructure:"book_file" yaml:"book_file"`
	NetworkDelayMS   int    `mapstructure:"network_delay_ms" yaml:"network_delay_ms"`
	MinThinkMS       int    `mapstructure:"min_think_ms" yaml:"min_think_ms"`
	EnteringKingRule bool   `mapstructure:"entering_king_rule" yaml:"entering_king_rule"`
	LogLevel         string `mapstructure:"log_level" yaml:"log_level"`
	LogPretty        bool   `mapstructure:"log_pretty" yaml:"log_pretty"`
	RecordGames      bool   `mapstructure:"record_games" yaml:"record_games"`
	DataDir          string `mapstructure:"data_dir" yaml:"data_dir"`
	TTHorizon        int    `mapstructure:"tt_horizon" yaml:"tt_horizon"`
}

// Limits applied by Load.
const (
	MinHashMB    = 1
	MaxHashMB    = 65536
	MinThreads   = 1
	MaxThreads   = 512
	MaxDelayMS   = 10000
	MaxThinkMS   = 60000
	MinTTHorizon = 1
	MaxTTHorizon = 31
)

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HashMB:           256,
		Threads:          1,
		NetworkDelayMS:   120,
		MinThinkMS:       2000,
		EnteringKingRule: true,
		LogLevel:         "info",
		TTHorizon:        MaxTTHorizon,
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("hash_mb", d.HashMB)
	v.SetDefault("threads", d.Threads)
	v.SetDefault("eval_file", d.EvalFile)
	v.SetDefault("book_file", d.BookFile)
	v.SetDefault("network_delay_ms", d.NetworkDelayMS)
	v.SetDefault("min_think_ms", d.MinThinkMS)
	v.SetDefault("entering_king_rule", d.EnteringKingRule)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_pretty", d.LogPretty)
	v.SetDefault("record_games", d.RecordGames)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("tt_horizon", d.TTHorizon)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, or shogiplay.yaml from the working directory and
// searchDirs when path is empty. A missing default file is not an error; a
// missing explicit path is.
func Load(path string, searchDirs ...string) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		for _, d := range searchDirs {
			v.AddConfigPath(d)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c.clamped(), nil
}

func (c Config) clamped() Config {
	c.HashMB = lo.Clamp(c.HashMB, MinHashMB, MaxHashMB)
	c.Threads = lo.Clamp(c.Threads, MinThreads, MaxThreads)
	c.NetworkDelayMS = lo.Clamp(c.NetworkDelayMS, 0, MaxDelayMS)
	c.MinThinkMS = lo.Clamp(c.MinThinkMS, 0, MaxThinkMS)
	c.TTHorizon = lo.Clamp(c.TTHorizon, MinTTHorizon, MaxTTHorizon)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}

// WriteDefault writes the default settings as YAML to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
