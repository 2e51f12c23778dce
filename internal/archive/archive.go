package archive

import (
	"context"
	"sort"
	"time"

	"github.com/forest-guardian/lst-ndvi-cli/internal/raster"
	"github.com/forest-guardian/lst-ndvi-cli/internal/region"
)

// Scene is one acquisition with its CLOUD_COVER metadata and raw DN bands.
type Scene struct {
	ID         string
	Date       time.Time
	CloudCover float64
	Image      *raster.Image
}

// Query selects scenes acquired in [Start, End) with CloudCover < MaxCloudCover.
type Query struct {
	Region        *region.Region
	Start         time.Time
	End           time.Time
	MaxCloudCover float64
}

func (q Query) Matches(date time.Time, cloudCover float64) bool {
	if date.Before(q.Start) || !date.Before(q.End) {
		return false
	}
	return cloudCover < q.MaxCloudCover
}

// Archive is a queryable image collection.
type Archive interface {
	Scenes(ctx context.Context, q Query) ([]Scene, error)
}

// Filter keeps the scenes matching q, oldest first.
func Filter(scenes []Scene, q Query) []Scene {
	var out []Scene
	for _, s := range scenes {
		if q.Matches(s.Date, s.CloudCover) {
			out = append(out, s)
		}
	}
	sortByDate(out)
	return out
}

func sortByDate(scenes []Scene) {
	sort.SliceStable(scenes, func(i, j int) bool {
		return scenes[i].Date.Before(scenes[j].Date)
	})
}

// Memory serves scenes held in memory.
type Memory struct {
	scenes []Scene
}

func NewMemory(scenes ...Scene) *Memory {
	return &Memory{scenes: scenes}
}

func (m *Memory) Scenes(ctx context.Context, q Query) ([]Scene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Filter(m.scenes, q), nil
}
