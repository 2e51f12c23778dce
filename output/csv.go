package output

import (
	"fmt"
	"os"
	"strconv"

	"github.com/forest-guardian/lst-ndvi-cli/internal/bandmath"
	"github.com/forest-guardian/lst-ndvi-cli/internal/pipeline"
	"github.com/forest-guardian/lst-ndvi-cli/internal/stats"
	"github.com/gocarina/gocsv"
)

type SampleRow struct {
	X         int     `csv:"x"`
	Y         int     `csv:"y"`
	Longitude float64 `csv:"longitude"`
	Latitude  float64 `csv:"latitude"`
	NDVI      float64 `csv:"ndvi"`
	LST       float64 `csv:"lst"`
}

type StatRow struct {
	Statistic string `csv:"statistic"`
	Value     string `csv:"value"`
}

func SampleRows(samples stats.SampleTable) ([]SampleRow, error) {
	ndvi, err := samples.Column(bandmath.BandNDVI)
	if err != nil {
		return nil, err
	}
	lst, err := samples.Column(bandmath.BandLST)
	if err != nil {
		return nil, err
	}
	rows := make([]SampleRow, samples.Len())
	for i, s := range samples.Rows {
		rows[i] = SampleRow{X: s.X, Y: s.Y, Longitude: s.Longitude, Latitude: s.Latitude, NDVI: ndvi[i], LST: lst[i]}
	}
	return rows, nil
}

// StatRows lists LST min/max/mean and the correlation; missing values read n/a.
func StatRows(s *pipeline.Session) []StatRow {
	var rows []StatRow
	for _, suffix := range []string{stats.SuffixMin, stats.SuffixMax, stats.SuffixMean} {
		key := bandmath.BandLST + suffix
		value := "n/a"
		if v, ok := s.Stats.Get(key); ok {
			value = strconv.FormatFloat(v, 'f', 6, 64)
		}
		rows = append(rows, StatRow{Statistic: key, Value: value})
	}
	corr := "n/a"
	if s.CorrelationErr == nil {
		corr = strconv.FormatFloat(s.Correlation, 'f', 6, 64)
	}
	rows = append(rows, StatRow{Statistic: "correlation", Value: corr})
	rows = append(rows, StatRow{Statistic: "samples", Value: strconv.Itoa(s.Samples.Len())})
	return rows
}

func WriteSamplesCSV(path string, samples stats.SampleTable) error {
	rows, err := SampleRows(samples)
	if err != nil {
		return err
	}
	return writeCSV(path, &rows)
}

func WriteStatsCSV(path string, s *pipeline.Session) error {
	rows := StatRows(s)
	return writeCSV(path, &rows)
}

func writeCSV(path string, rows interface{}) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()
	if err := gocsv.MarshalFile(rows, file); err != nil {
		return fmt.Errorf("error writing csv: %w", err)
	}
	return nil
}
