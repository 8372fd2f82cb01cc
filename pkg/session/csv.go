package session

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/iohnishijima/GazeMappingApplication/pkg/engine"
)

// csvHeader is the historical column layout of exported recordings.
var csvHeader = []string{"Frame", "PicNum", "GazeX", "GazeY", "AOI", "ScoreRight", "ScoreLeft", "SystemTime"}

// nextCSVPath returns dir/recorded_data.csv, or the first free
// dir/recorded_data(N).csv when earlier exports already exist.
func nextCSVPath(dir string) string {
	path := filepath.Join(dir, "recorded_data.csv")
	for index := 1; ; index++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("recorded_data(%d).csv", index))
	}
}

// writeCSV exports rows to path.
func writeCSV(path string, rows []engine.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.Frame, 10),
			strconv.FormatInt(r.PicNum, 10),
			strconv.FormatFloat(r.GazeX, 'f', -1, 64),
			strconv.FormatFloat(r.GazeY, 'f', -1, 64),
			r.AOI,
			strconv.FormatFloat(r.ScoreRight, 'f', -1, 64),
			strconv.FormatFloat(r.ScoreLeft, 'f', -1, 64),
			r.SystemTime,
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	return f.Close()
}
