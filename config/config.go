package config

import (
	"fmt"
	"strings"

	"tax-token-program/core"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "TAXTOKEN"

	KeyDataDir    = "data-dir"
	KeyChainUrl   = "chain-url"
	KeyClock      = "clock"
	KeySupplyMode = "supply-mode"
	KeyLogLevel   = "log-level"

	ClockSystem = "system"
	ClockChain  = "chain"
)

type Config struct {
	DataDir    string `mapstructure:"data-dir"`
	ChainUrl   string `mapstructure:"chain-url"`
	Clock      string `mapstructure:"clock"`
	SupplyMode string `mapstructure:"supply-mode"`
	LogLevel   string `mapstructure:"log-level"`
}

func Default() *Config {
	return &Config{
		DataDir:    "data",
		ChainUrl:   "https://emerald.oasis.dev",
		Clock:      ClockSystem,
		SupplyMode: string(core.SupplyModeDisplay),
		LogLevel:   logrus.InfoLevel.String(),
	}
}

// AddFlags registers every config key on flags with its default.
func AddFlags(flags *pflag.FlagSet) {
	def := Default()
	flags.String(KeyDataDir, def.DataDir, "Directory of the local ledger")
	flags.String(KeyChainUrl, def.ChainUrl, "JSON-RPC endpoint used when clock is \"chain\"")
	flags.String(KeyClock, def.Clock, "Time source for wallet selection: system or chain")
	flags.String(KeySupplyMode, def.SupplyMode, "Supply counter policy: display or deduct")
	flags.String(KeyLogLevel, def.LogLevel, "Log level")
}

// Load merges, lowest priority first: defaults, the config file (if any),
// TAXTOKEN_* environment variables and flags.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault(KeyDataDir, def.DataDir)
	v.SetDefault(KeyChainUrl, def.ChainUrl)
	v.SetDefault(KeyClock, def.Clock)
	v.SetDefault(KeySupplyMode, def.SupplyMode)
	v.SetDefault(KeyLogLevel, def.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %v", err)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read: %v", err)
		}
	}

	c := new(Config)
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unmarshal: %v", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate: %v", err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch c.Clock {
	case ClockSystem:
	case ClockChain:
		if c.ChainUrl == "" {
			return fmt.Errorf("%s is required when clock is %q", KeyChainUrl, ClockChain)
		}
	default:
		return fmt.Errorf("unknown clock %q", c.Clock)
	}
	if _, err := core.ParseSupplyMode(c.SupplyMode); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
