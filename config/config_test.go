package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "payroll.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 8, cfg.Evaluation.Workers)
	assert.Empty(t, cfg.TaxTables.Dir)
}

func TestLoad_FileAndEnv(t *testing.T) {
	// GIVEN: a config file and an environment override
	path := filepath.Join(t.TempDir(), "payroll.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
database:
  path: ":memory:"
evaluation:
  workers: 2
`), 0o600))
	t.Setenv("PAYROLL_LOGGING_LEVEL", "debug")

	// WHEN
	cfg, err := Load(viper.New(), path)

	// THEN: file values and env both apply
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, 2, cfg.Evaluation.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad workers", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("PAYROLL_EVALUATION_WORKERS", "0")
		_, err := Load(viper.New(), "")
		assert.ErrorContains(t, err, "evaluation.workers")
	})
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		logger, err := NewLogger(Logging{Level: "warn", Format: format})
		require.NoError(t, err, format)
		assert.False(t, logger.Core().Enabled(zap.DebugLevel), "debug must be disabled at warn")
	}

	_, err := NewLogger(Logging{Level: "loud", Format: "console"})
	assert.Error(t, err)
	_, err = NewLogger(Logging{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
