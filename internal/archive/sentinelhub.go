package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/forest-guardian/lst-ndvi-cli/internal/cache"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	DefaultProcessURL = "https://sh.dataspace.copernicus.eu/api/v1/process"
	landsatCollection = "landsat-ot-l1"
	maxOutputPixels   = 2500
)

var ErrUnauthorized = errors.New("unauthorized access, check your client ID and secret")

// Median of the cloud-filtered acquisitions, computed per pixel on the server.
const compositeEvalscript = `//VERSION=3
function setup() {
  return {
    input: [{ bands: ["B04", "B05", "B10", "dataMask"], units: "DN" }],
    output: { id: "default", bands: 3, sampleType: SampleType.FLOAT32 },
    mosaicking: Mosaicking.ORBIT
  };
}

function median(values) {
  values.sort(function (a, b) { return a - b; });
  var mid = Math.floor(values.length / 2);
  if (values.length % 2 === 0) {
    return (values[mid - 1] + values[mid]) / 2;
  }
  return values[mid];
}

function evaluatePixel(samples) {
  var red = [], nir = [], tir = [];
  for (var i = 0; i < samples.length; i++) {
    if (samples[i].dataMask === 0) {
      continue;
    }
    red.push(samples[i].B04);
    nir.push(samples[i].B05);
    tir.push(samples[i].B10);
  }
  if (red.length === 0) {
    return [NaN, NaN, NaN];
  }
  return [median(red), median(nir), median(tir)];
}
`

type SentinelHubConfig struct {
	ClientIDs     []string
	ClientSecrets []string
	TokenURL      string
	ProcessURL    string
	// Resolution is the output pixel size in metres.
	Resolution float64
	Retries    int
	RetryWait  time.Duration
	// Cache is optional.
	Cache cache.CacheService[[]byte]
}

// SentinelHub requests a server-side median composite from the Process API.
// Scenes returns that composite as a single scene dated at the query start.
type SentinelHub struct {
	cfg SentinelHubConfig
}

func NewSentinelHub(cfg SentinelHubConfig) (*SentinelHub, error) {
	if len(cfg.ClientIDs) == 0 || cfg.TokenURL == "" {
		return nil, fmt.Errorf("missing required environment variables: COPERNICUS_CLIENT_ID, COPERNICUS_CLIENT_SECRET, or COPERNICUS_TOKEN_URL")
	}
	if len(cfg.ClientIDs) != len(cfg.ClientSecrets) {
		return nil, fmt.Errorf("mismatched number of client IDs and secrets")
	}
	if cfg.ProcessURL == "" {
		cfg.ProcessURL = DefaultProcessURL
	}
	if cfg.Resolution <= 0 {
		cfg.Resolution = 30
	}
	if cfg.Retries < 1 {
		cfg.Retries = 10
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 5 * time.Second
	}
	return &SentinelHub{cfg: cfg}, nil
}

func (s *SentinelHub) Scenes(ctx context.Context, q Query) ([]Scene, error) {
	content, err := s.fetch(ctx, q)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", "sentinelhub-*.tif")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write response: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write response: %w", err)
	}

	img, err := ReadGeoTIFF(tmp.Name(), SceneBands)
	if err != nil {
		return nil, err
	}
	return []Scene{{
		ID:    fmt.Sprintf("SH_LC08_%s_%s", q.Start.Format("20060102"), q.End.Format("20060102")),
		Date:  q.Start,
		Image: img,
	}}, nil
}

// fetch returns the raw TIFF bytes, from cache when possible.
func (s *SentinelHub) fetch(ctx context.Context, q Query) ([]byte, error) {
	if q.Region == nil {
		return nil, errors.New("sentinelhub: query has no region")
	}
	var key string
	if s.cfg.Cache != nil {
		key = s.cfg.Cache.GenerateKey(q.Region.Name, q.Start.Format(time.RFC3339), q.End.Format(time.RFC3339), q.MaxCloudCover, s.cfg.Resolution)
		if content, ok := s.cfg.Cache.Get(key); ok {
			log.Printf("sentinelhub: cache hit for %s", q.Region.Name)
			return content, nil
		}
	}

	payload, err := buildProcessRequest(q, s.cfg.Resolution)
	if err != nil {
		return nil, err
	}
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var lastErr error
	for i, clientID := range s.cfg.ClientIDs {
		config := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: s.cfg.ClientSecrets[i],
			TokenURL:     s.cfg.TokenURL,
		}
		content, err := s.post(ctx, config.Client(ctx), requestBody)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}
		if s.cfg.Cache != nil {
			if err := s.cfg.Cache.Set(key, content); err != nil {
				log.Printf("sentinelhub: failed to cache response: %v", err)
			}
		}
		return content, nil
	}
	return nil, lastErr
}

func (s *SentinelHub) post(ctx context.Context, client *http.Client, body []byte) ([]byte, error) {
	var err error
	for attempt := 1; attempt <= s.cfg.Retries; attempt++ {
		var req *http.Request
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.ProcessURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "image/tiff")

		var response *http.Response
		response, err = client.Do(req)
		if err == nil {
			content, readErr := io.ReadAll(response.Body)
			response.Body.Close()
			switch {
			case readErr != nil:
				err = fmt.Errorf("failed to read response body: %w", readErr)
			case response.StatusCode == http.StatusOK:
				return content, nil
			case response.StatusCode == http.StatusForbidden || strings.Contains(string(content), "403"):
				return nil, ErrUnauthorized
			default:
				err = fmt.Errorf("status %d: %s", response.StatusCode, string(content))
			}
		}
		log.Printf("sentinelhub: attempt %d failed: %v", attempt, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.RetryWait):
		}
	}
	return nil, fmt.Errorf("failed to request image after %d attempts: %w", s.cfg.Retries, err)
}

func calculatePixels(distance float64, resolution float64) int {
	pixels := distance * (111_000.0 / resolution)
	if pixels < 1 {
		return 1
	}
	if pixels > maxOutputPixels {
		return maxOutputPixels
	}
	return int(pixels)
}

func buildProcessRequest(q Query, resolution float64) (map[string]interface{}, error) {
	geometryJSON, err := q.Region.GeoJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export geometry to GeoJSON: %w", err)
	}
	var geometry map[string]interface{}
	if err := json.Unmarshal(geometryJSON, &geometry); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	bound := q.Region.Bound()
	return map[string]interface{}{
		"input": map[string]interface{}{
			"bounds": map[string]interface{}{
				"geometry":   geometry,
				"properties": map[string]string{"crs": "http://www.opengis.net/def/crs/EPSG/0/4326"},
			},
			"data": []map[string]interface{}{
				{
					"type": landsatCollection,
					"dataFilter": map[string]interface{}{
						"timeRange": map[string]string{
							"from": q.Start.Format(time.RFC3339),
							"to":   q.End.Format(time.RFC3339),
						},
						"maxCloudCoverage": q.MaxCloudCover,
					},
				},
			},
		},
		"output": map[string]interface{}{
			"width":  calculatePixels(bound.Max.X()-bound.Min.X(), resolution),
			"height": calculatePixels(bound.Max.Y()-bound.Min.Y(), resolution),
			"responses": []map[string]interface{}{
				{
					"identifier": "default",
					"format":     map[string]string{"type": "image/tiff"},
				},
			},
		},
		"evalscript": compositeEvalscript,
	}, nil
}

var _ Archive = (*SentinelHub)(nil)
