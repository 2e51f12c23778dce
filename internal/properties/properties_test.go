package properties

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"ROOT_PATH", "REGION", "START_DATE", "END_DATE", "CLOUD_COVER_MAX", "SAMPLE_SIZE",
	"SAMPLE_SEED", "REDUCE_SCALE", "MAX_PIXELS", "ARCHIVE_KIND", "ARCHIVE_WORKERS",
	"COPERNICUS_CLIENT_ID", "COPERNICUS_CLIENT_SECRET", "COPERNICUS_TOKEN_URL", "COPERNICUS_PROCESS_URL",
	"DISCORD_ERROR_NOTIFICATION_URL", "DISCORD_SUCCESS_NOTIFICATION_URL",
}

func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.RootPath)
	assert.Equal(t, "purba_bardhaman", cfg.Region)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), cfg.StartDate)
	assert.Equal(t, time.Date(2024, 7, 30, 0, 0, 0, 0, time.UTC), cfg.EndDate)
	assert.Equal(t, 10.0, cfg.CloudCoverMax)
	assert.Equal(t, 1000, cfg.SampleSize)
	assert.Equal(t, int64(0), cfg.SampleSeed)
	assert.Equal(t, 30.0, cfg.ReduceScale)
	assert.Equal(t, 1e13, cfg.MaxPixels)
	assert.Equal(t, ArchiveGeoTIFF, cfg.ArchiveKind)
	assert.Equal(t, 4, cfg.ArchiveWorkers)
	assert.Empty(t, cfg.CopernicusClientIDs)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROOT_PATH", "/srv/lst")
	t.Setenv("REGION", "hooghly")
	t.Setenv("START_DATE", "2023-03-01")
	t.Setenv("END_DATE", "2023-06-01")
	t.Setenv("SAMPLE_SEED", "42")
	t.Setenv("ARCHIVE_KIND", "SentinelHub")
	t.Setenv("COPERNICUS_CLIENT_ID", "a, b")
	t.Setenv("COPERNICUS_CLIENT_SECRET", "s1,s2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/lst", cfg.RootPath)
	assert.Equal(t, "hooghly", cfg.Region)
	assert.Equal(t, int64(42), cfg.SampleSeed)
	assert.Equal(t, ArchiveSentinelHub, cfg.ArchiveKind)
	assert.Equal(t, []string{"a", "b"}, cfg.CopernicusClientIDs)
	assert.Equal(t, []string{"s1", "s2"}, cfg.CopernicusClientSecrets)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string][2]string{
		"bad date":      {"START_DATE", "01/04/2024"},
		"bad float":     {"CLOUD_COVER_MAX", "ten"},
		"bad int":       {"SAMPLE_SIZE", "1k"},
		"bad archive":   {"ARCHIVE_KIND", "s3"},
		"reversed span": {"END_DATE", "2024-01-01"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
