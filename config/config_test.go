package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tessellate-ai/memring/config"
)

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memring.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
memory:
  promotionImportance: 0.8
forge:
  tokenBudget: 1500
scheduler:
  tickInterval: 5m
`), 0644))

	conf, err := config.LoadFile(path)
	require.NoError(t, err)

	require.Equal(t, 0.8, conf.Memory.PromotionImportance)
	require.Equal(t, 1500, conf.Forge.TokenBudget)
	require.Equal(t, 5*time.Minute, conf.Scheduler.TickInterval)

	// Untouched fields keep their defaults.
	require.Equal(t, 1536, conf.Memory.VectorDim)
	require.Equal(t, 0.4, conf.Forge.RelevanceFloor)
	require.Equal(t, "text-embedding-3-small", conf.OpenAI.EmbeddingModel)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := config.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestResolveConfigFromEnv(t *testing.T) {
	t.Setenv("MEMRING_TOKEN_BUDGET", "2200")

	conf := config.NewForgeConfig()
	require.NoError(t, config.ResolveConfig(conf))
	require.Equal(t, 2200, conf.TokenBudget)
}
