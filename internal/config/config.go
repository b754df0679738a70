package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/screa/starknet-salt-miner/internal/crypto"
	"github.com/screa/starknet-salt-miner/internal/logger"
	"github.com/spf13/viper"
)

// Errors
var (
	ErrInvalidWorkers        = errors.New("workers must not be negative")
	ErrInvalidDuration       = errors.New("duration must not be negative")
	ErrInvalidLogInterval    = errors.New("log interval must be at least one second")
	ErrInvalidLogFormat      = errors.New("log format must be console, json or logfmt")
	ErrInvalidResultBuffer   = errors.New("result buffer must be at least 1")
	ErrInvalidEstimateWindow = errors.New("estimate window must be positive")
	ErrCalldataConflict      = errors.New("specify either --calldata or --calldata-file, not both")
)

// Keys shared by the command line flags, the environment and config files.
const (
	KeyWorkers        = "workers"
	KeyClassHash      = "class-hash"
	KeyDeployer       = "deployer"
	KeyCalldata       = "calldata"
	KeyCalldataFile   = "calldata-file"
	KeyDuration       = "duration"
	KeySeed           = "seed"
	KeyVerbose        = "verbose"
	KeyLogFile        = "log-file"
	KeyLogFormat      = "log-format"
	KeyLogInterval    = "log-interval"
	KeyMetricsAddr    = "metrics-addr"
	KeyResultBuffer   = "buffer"
	KeyEstimateWindow = "estimate-window"

	// EnvPrefix namespaces environment overrides, e.g. SALT_MINER_WORKERS.
	EnvPrefix = "SALT_MINER"
)

// Config holds the application configuration
type Config struct {
	Workers        int // 0 selects one worker per CPU
	ClassHash      string
	Deployer       string
	Calldata       []string
	CalldataFile   string
	Duration       time.Duration // 0 runs until interrupted
	Seed           string        // empty seeds every worker randomly
	Verbose        bool
	LogFile        string
	LogFormat      string
	LogInterval    int // Logging interval in seconds
	MetricsAddr    string
	ResultBuffer   int
	EstimateWindow time.Duration
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Workers:        runtime.NumCPU(),
		ClassHash:      crypto.DefaultClassHash,
		Deployer:       crypto.DefaultDeployer,
		LogFormat:      logger.FormatConsole,
		LogInterval:    5,
		ResultBuffer:   1024,
		EstimateWindow: time.Second,
	}
}

// FromViper reads every key from v on top of the defaults.
func FromViper(v *viper.Viper) *Config {
	c := NewConfig()
	if v.IsSet(KeyWorkers) {
		c.Workers = v.GetInt(KeyWorkers)
	}
	if v.IsSet(KeyClassHash) {
		c.ClassHash = v.GetString(KeyClassHash)
	}
	if v.IsSet(KeyDeployer) {
		c.Deployer = v.GetString(KeyDeployer)
	}
	if v.IsSet(KeyCalldata) {
		c.Calldata = splitList(v.GetStringSlice(KeyCalldata))
	}
	if v.IsSet(KeyLogFormat) {
		c.LogFormat = v.GetString(KeyLogFormat)
	}
	if v.IsSet(KeyLogInterval) {
		c.LogInterval = v.GetInt(KeyLogInterval)
	}
	if v.IsSet(KeyResultBuffer) {
		c.ResultBuffer = v.GetInt(KeyResultBuffer)
	}
	if v.IsSet(KeyEstimateWindow) {
		c.EstimateWindow = v.GetDuration(KeyEstimateWindow)
	}
	c.CalldataFile = v.GetString(KeyCalldataFile)
	c.Duration = v.GetDuration(KeyDuration)
	c.Seed = v.GetString(KeySeed)
	c.Verbose = v.GetBool(KeyVerbose)
	c.LogFile = v.GetString(KeyLogFile)
	c.MetricsAddr = v.GetString(KeyMetricsAddr)
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return ErrInvalidWorkers
	}
	if c.Duration < 0 {
		return ErrInvalidDuration
	}
	if c.LogInterval < 1 {
		return ErrInvalidLogInterval
	}
	switch strings.ToLower(c.LogFormat) {
	case logger.FormatConsole, logger.FormatJSON, logger.FormatLogfmt:
	default:
		return ErrInvalidLogFormat
	}
	if c.ResultBuffer < 1 {
		return ErrInvalidResultBuffer
	}
	if c.EstimateWindow <= 0 {
		return ErrInvalidEstimateWindow
	}
	if len(c.Calldata) > 0 && c.CalldataFile != "" {
		return ErrCalldataConflict
	}
	if _, err := crypto.ParseFelt(c.ClassHash); err != nil {
		return fmt.Errorf("class hash: %w", err)
	}
	if _, err := crypto.ParseFelt(c.Deployer); err != nil {
		return fmt.Errorf("deployer: %w", err)
	}
	return nil
}

// EffectiveWorkers returns the number of workers to start, at least one.
func (c *Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	if n := runtime.NumCPU(); n > 1 {
		return n
	}
	return 1
}

// GetCalldata returns the constructor calldata felts as literals.
func (c *Config) GetCalldata() ([]string, error) {
	if c.CalldataFile != "" {
		return readCalldataFromFile(c.CalldataFile)
	}
	return c.Calldata, nil
}

// Params returns the derivation inputs described by c.
func (c *Config) Params() (crypto.Params, error) {
	calldata, err := c.GetCalldata()
	if err != nil {
		return crypto.Params{}, err
	}
	return crypto.Params{
		Deployer:  c.Deployer,
		ClassHash: c.ClassHash,
		Calldata:  calldata,
	}, nil
}

// GetTargetDescription returns a human-readable description of the search
func (c *Config) GetTargetDescription() string {
	desc := fmt.Sprintf("minimum address for class %s deployed by %s", c.ClassHash, c.Deployer)
	if c.CalldataFile != "" {
		return desc + ", calldata from " + c.CalldataFile
	}
	if len(c.Calldata) > 0 {
		return fmt.Sprintf("%s, %d calldata felts", desc, len(c.Calldata))
	}
	return desc
}

// readCalldataFromFile reads felts separated by commas or whitespace
func readCalldataFromFile(filename string) ([]string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	fields := strings.FieldsFunc(string(content), func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r' || r == ' ' || r == '\t'
	})
	return fields, nil
}

func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
