package main

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/pkg/errors"
	"github.com/screa/starknet-salt-miner/internal/config"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDeriveCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "default params",
			args: []string{"derive", "--salt", "0"},
			want: "salt 0, address: 0x006730d8df988b2b47fc0d4d533a3aca84e574ab1a0fdf60b424579ad9aa387e\n",
		},
		{
			name: "max salt",
			args: []string{"derive", "--salt", "340282366920938463463374607431768211455"},
			want: "salt 340282366920938463463374607431768211455, address: 0x078b70046a5ab40de52fba54094082eef11a3596723a3c099821d80c52a248e9\n",
		},
		{
			name: "custom params",
			args: []string{"derive", "--salt", "7", "--deployer", "0x1234", "--calldata", "1,2"},
			want: "salt 7, address: 0x00fdab40fd2ee85104f4ca88835c35ca1c155f3e807bf4a6eb2cfcd8b695518b\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			require.Equal(t, tt.want, out)
		})
	}
}

func TestDeriveFromEnv(t *testing.T) {
	t.Setenv("SALT_MINER_DEPLOYER", "0x1234")
	t.Setenv("SALT_MINER_CALLDATA", "1,2")

	out, err := execute(t, "derive", "--salt", "7")
	require.NoError(t, err)
	require.Contains(t, out, "0x00fdab40fd2ee85104f4ca88835c35ca1c155f3e807bf4a6eb2cfcd8b695518b")
}

func TestDeriveRejectsBadSalt(t *testing.T) {
	_, err := execute(t, "derive", "--salt", "340282366920938463463374607431768211456")
	require.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	_, err := execute(t, "--log-format", "xml", "--duration", "10ms")
	require.ErrorIs(t, err, config.ErrInvalidLogFormat)

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "reading config file")
}

func TestMineCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("mines for a fraction of a second")
	}
	logFile := filepath.Join(t.TempDir(), "miner.log")

	_, err := execute(t,
		"--workers", "2",
		"--duration", "300ms",
		"--estimate-window", "50ms",
		"--log-file", logFile,
	)
	require.NoError(t, err)

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	log := string(content)
	require.Contains(t, log, "will use 2 threads")
	require.Regexp(t, regexp.MustCompile(`Estimated speed: \d+\.\dk/s`), log)
	require.Regexp(t, regexp.MustCompile(`salt \d+, min: 0x[0-9a-f]{64}`), log)
	require.Contains(t, log, "Best result")
}

func TestMineCommandConfigFile(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "miner.log")
	cfgFile := filepath.Join(dir, "miner.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(
		"workers: 1\nduration: 100ms\nestimate-window: 20ms\nlog-format: json\nlog-file: "+logFile+"\n",
	), 0o600))

	_, err := execute(t, "--config", cfgFile)
	require.NoError(t, err)

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(content), `"msg":"will use 1 threads"`)
}

func TestEstimateCommand(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "estimate.log")
	_, err := execute(t, "estimate", "-w", "1", "--estimate-window", "20ms", "-l", logFile)
	require.NoError(t, err)

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(content), "will use 1 threads")
	require.Contains(t, string(content), "Estimated speed:")
}

func TestSetupLoggingReportsCloseErrors(t *testing.T) {
	cfg := config.NewConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "miner.log")

	logger, closeLog, err := setupLogging(cfg)
	require.NoError(t, err)
	logger.Printf("will use %d threads", 1)
	require.NoError(t, closeLog())

	content, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	require.Contains(t, string(content), "will use 1 threads")

	err = closeLog()
	require.ErrorContains(t, err, "closing log file")

	var runErr error
	closeLogging(closeLog, &runErr)
	require.ErrorIs(t, runErr, os.ErrClosed)

	first := errors.New("mining aborted")
	runErr = first
	closeLogging(closeLog, &runErr)
	require.Equal(t, first, runErr)
}

func TestSetupLoggingStdout(t *testing.T) {
	_, closeLog, err := setupLogging(config.NewConfig())
	require.NoError(t, err)
	require.NoError(t, closeLog())
}
