package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("app:\n  name: synapse\n"))
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.Ingestion.ChunkSize)
	assert.Equal(t, 5, cfg.Ingestion.MaxTags)
	assert.Equal(t, 10, cfg.Ingestion.MinTranscriptWords)
	assert.Equal(t, 0.2, cfg.Clustering.Eps)
	assert.Equal(t, 3, cfg.Clustering.MinSamples)
	assert.Equal(t, "Miscellaneous", cfg.Clustering.MiscTopicName)
	assert.Equal(t, "Unnamed Topic", cfg.Clustering.FallbackTopicName)
	assert.Contains(t, cfg.Ingestion.VideoHosts, "youtu.be")
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestParse_RejectsBadDuration(t *testing.T) {
	_, err := Parse([]byte("ingestion:\n  fetchTimeout: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion.fetchTimeout")
}

func TestParse_RejectsEpsOutOfRange(t *testing.T) {
	_, err := Parse([]byte("clustering:\n  eps: 3.5\n"))
	require.Error(t, err)
}

func TestLoadConfig_SampleFile(t *testing.T) {
	cfg, err := LoadConfig("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, "recluster_requests", cfg.CardService.ReclusterTopic)
	assert.True(t, cfg.Middleware.RateLimiter.PerUser)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, Duration("5s", time.Minute))
	assert.Equal(t, time.Minute, Duration("", time.Minute))
	assert.Equal(t, time.Minute, Duration("-1s", time.Minute))
}
