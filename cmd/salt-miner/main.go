package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/screa/starknet-salt-miner/internal/config"
	"github.com/screa/starknet-salt-miner/internal/crypto"
	logpkg "github.com/screa/starknet-salt-miner/internal/logger"
	minerpkg "github.com/screa/starknet-salt-miner/pkg/miner"
	"github.com/screa/starknet-salt-miner/pkg/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "salt-miner",
		Short: "Starknet contract address salt miner",
		Long: `Searches 128-bit deployment salts for the numerically smallest Starknet
contract address. Every improvement of the global minimum is printed as it is
found; the search runs until interrupted or until --duration elapses.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadViper(v, cmd, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMiner(v)
		},
	}

	d := config.NewConfig()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
	flags.IntP(config.KeyWorkers, "w", d.Workers, "Number of worker goroutines (0 = one per CPU)")
	flags.String(config.KeyClassHash, d.ClassHash, "Class hash of the deployed contract")
	flags.String(config.KeyDeployer, d.Deployer, "Deployer address (0x0 for a counterfactual deploy)")
	flags.StringSlice(config.KeyCalldata, nil, "Constructor calldata felts, comma separated")
	flags.String(config.KeyCalldataFile, "", "File containing the constructor calldata felts")
	flags.DurationP(config.KeyDuration, "d", 0, "Stop after this long (0 = run until interrupted)")
	flags.String(config.KeySeed, "", "Seed for reproducible per-worker salt streams")
	flags.BoolP(config.KeyVerbose, "v", false, "Verbose output")
	flags.StringP(config.KeyLogFile, "l", "", "Log file for progress tracking (default: stdout)")
	flags.String(config.KeyLogFormat, d.LogFormat, "Log format: console, json or logfmt")
	flags.IntP(config.KeyLogInterval, "i", d.LogInterval, "Logging interval in seconds")
	flags.String(config.KeyMetricsAddr, "", "Serve Prometheus metrics on this address")
	flags.Int(config.KeyResultBuffer, d.ResultBuffer, "Capacity of the improvement channel")
	flags.Duration(config.KeyEstimateWindow, d.EstimateWindow, "Length of the speed estimate")

	rootCmd.AddCommand(newDeriveCmd(v), newEstimateCmd(v))
	return rootCmd
}

func newDeriveCmd(v *viper.Viper) *cobra.Command {
	var salt string
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the contract address of a single salt",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := crypto.ParseSalt(salt)
			if err != nil {
				return err
			}
			cfg := config.FromViper(v)
			if err := cfg.Validate(); err != nil {
				return err
			}
			params, err := cfg.Params()
			if err != nil {
				return errors.WithMessage(err, "reading calldata")
			}
			constants, err := crypto.NewConstants(params)
			if err != nil {
				return err
			}

			addr := crypto.NewDeriver(constants).Derive(s)
			fmt.Fprintf(cmd.OutOrStdout(), "salt %s, address: %s\n", s, addr.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&salt, "salt", "0", "Salt as a decimal number below 2^128")
	return cmd
}

func newEstimateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate",
		Short: "Measure the derivation rate without searching",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, logger, closeLog, err := setup(v)
			if err != nil {
				return err
			}
			defer closeLogging(closeLog, &err)

			miner, err := minerpkg.NewMiner(cfg, logger)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Printf("will use %d threads", miner.Workers())
			miner.Estimate(ctx)
			return nil
		},
	}
}

// loadViper binds the flags of cmd, the environment and the optional config
// file to v.
func loadViper(v *viper.Viper, cmd *cobra.Command, cfgFile string) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "binding flags")
	}
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	return errors.Wrapf(v.ReadInConfig(), "reading config file %s", cfgFile)
}

func runMiner(v *viper.Viper) (err error) {
	cfg, logger, closeLog, err := setup(v)
	if err != nil {
		return err
	}
	defer closeLogging(closeLog, &err)

	miner, err := minerpkg.NewMiner(cfg, logger)
	if err != nil {
		return err
	}
	logger.Printf("will use %d threads", miner.Workers())
	logger.Printf("Target: %s", cfg.GetTargetDescription())

	// Set up signal handling for Ctrl+C
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := miner.Metrics().Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Errorf("metrics server stopped: %v", err)
			}
		}()
		logger.Printf("Serving metrics on %s/metrics", cfg.MetricsAddr)
	}

	miner.Estimate(ctx)
	result, err := miner.Mine(ctx)
	printResult(logger, result)
	if err != nil {
		return errors.WithMessage(err, "mining aborted")
	}
	return nil
}

func printResult(logger *logpkg.Logger, result *types.Result) {
	if result == nil {
		logger.Println("No address derived.")
		return
	}
	logger.Printf("Best result (lowest address found):")
	logger.Printf("Salt: %s (%s)", result.Salt, result.Salt.Hex())
	logger.Printf("Address: %s", result.Address.Hex())
	logger.Printf("Attempts: %d", result.Attempts)
	logger.Printf("Duration: %v", result.Duration)
	logger.Printf("Rate: %.2f addresses/sec", result.Rate())
}

// setup reads and validates the configuration and opens the log sink.
func setup(v *viper.Viper) (*config.Config, *logpkg.Logger, func() error, error) {
	cfg := config.FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	logger, closeLog, err := setupLogging(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closeLog, nil
}

// setupLogging returns the logger and a function that flushes and closes the
// log file. Stdout is left open and unsynced.
func setupLogging(cfg *config.Config) (*logpkg.Logger, func() error, error) {
	if cfg.LogFile == "" {
		logger, err := logpkg.NewWithConfig(logpkg.Config{
			Format:  cfg.LogFormat,
			Writer:  os.Stdout,
			Verbose: cfg.Verbose,
		})
		if err != nil {
			return nil, nil, err
		}
		return logger, func() error { return nil }, nil
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open log file")
	}
	logger, err := logpkg.NewWithConfig(logpkg.Config{
		Format:  cfg.LogFormat,
		Writer:  file,
		Verbose: cfg.Verbose,
	})
	if err != nil {
		file.Close()
		return nil, nil, err
	}

	return logger, func() error {
		syncErr := logger.Sync()
		if err := file.Close(); err != nil {
			return errors.Wrapf(err, "closing log file %s", cfg.LogFile)
		}
		return errors.Wrapf(syncErr, "flushing log file %s", cfg.LogFile)
	}, nil
}

// closeLogging runs closeLog and keeps its error unless *err is already set.
func closeLogging(closeLog func() error, err *error) {
	if cerr := closeLog(); cerr != nil && *err == nil {
		*err = cerr
	}
}
