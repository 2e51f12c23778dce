package properties

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

const (
	ArchiveGeoTIFF     = "geotiff"
	ArchiveSentinelHub = "sentinelhub"
	ArchiveSynthetic   = "synthetic"
)

func RootPath() string {
	if root := os.Getenv("ROOT_PATH"); root != "" {
		return root
	}
	return "."
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}

type Config struct {
	RootPath      string
	Region        string
	StartDate     time.Time
	EndDate       time.Time
	CloudCoverMax float64
	SampleSize    int
	SampleSeed    int64
	ReduceScale   float64
	MaxPixels     float64

	ArchiveKind    string
	ArchiveWorkers int

	CopernicusClientIDs     []string
	CopernicusClientSecrets []string
	CopernicusTokenURL      string
	CopernicusProcessURL    string

	DiscordErrorURL   string
	DiscordSuccessURL string
}

// Load reads the configuration from the environment, falling back to the
// Purba Bardhaman defaults.
func Load() (Config, error) {
	var (
		cfg Config
		err error
	)
	cfg.RootPath = RootPath()
	cfg.Region = getString("REGION", "purba_bardhaman")
	if cfg.StartDate, err = getDate("START_DATE", "2024-04-01"); err != nil {
		return cfg, err
	}
	if cfg.EndDate, err = getDate("END_DATE", "2024-07-30"); err != nil {
		return cfg, err
	}
	if !cfg.EndDate.After(cfg.StartDate) {
		return cfg, fmt.Errorf("END_DATE %s must be after START_DATE %s", cfg.EndDate.Format(dateLayout), cfg.StartDate.Format(dateLayout))
	}
	if cfg.CloudCoverMax, err = getFloat("CLOUD_COVER_MAX", 10); err != nil {
		return cfg, err
	}
	if cfg.SampleSize, err = getInt("SAMPLE_SIZE", 1000); err != nil {
		return cfg, err
	}
	seed, err := getInt("SAMPLE_SEED", 0)
	if err != nil {
		return cfg, err
	}
	cfg.SampleSeed = int64(seed)
	if cfg.ReduceScale, err = getFloat("REDUCE_SCALE", 30); err != nil {
		return cfg, err
	}
	if cfg.MaxPixels, err = getFloat("MAX_PIXELS", 1e13); err != nil {
		return cfg, err
	}

	cfg.ArchiveKind = strings.ToLower(getString("ARCHIVE_KIND", ArchiveGeoTIFF))
	switch cfg.ArchiveKind {
	case ArchiveGeoTIFF, ArchiveSentinelHub, ArchiveSynthetic:
	default:
		return cfg, fmt.Errorf("ARCHIVE_KIND must be one of %s, %s or %s, got %q", ArchiveGeoTIFF, ArchiveSentinelHub, ArchiveSynthetic, cfg.ArchiveKind)
	}
	if cfg.ArchiveWorkers, err = getInt("ARCHIVE_WORKERS", 4); err != nil {
		return cfg, err
	}

	cfg.CopernicusClientIDs = getList("COPERNICUS_CLIENT_ID")
	cfg.CopernicusClientSecrets = getList("COPERNICUS_CLIENT_SECRET")
	cfg.CopernicusTokenURL = os.Getenv("COPERNICUS_TOKEN_URL")
	cfg.CopernicusProcessURL = os.Getenv("COPERNICUS_PROCESS_URL")

	cfg.DiscordErrorURL = DiscordErrorNotificationUrl()
	cfg.DiscordSuccessURL = DiscordSuccessNotificationUrl()
	return cfg, nil
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getFloat(key string, def float64) (float64, error) {
	v := getString(key, "")
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return f, nil
}

func getInt(key string, def int) (int, error) {
	v := getString(key, "")
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	return i, nil
}

func getDate(key, def string) (time.Time, error) {
	v := getString(key, def)
	d, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s value %q, use YYYY-MM-DD: %w", key, v, err)
	}
	return d, nil
}
