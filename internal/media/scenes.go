package media

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Scene is one detected scene, in seconds from the start of the video.
type Scene struct {
	Start float64
	End   float64
}

// Duration returns the scene length in seconds.
func (s Scene) Duration() float64 { return s.End - s.Start }

// DetectScenes runs scenedetect over input, writing its CSV into outDir, and
// returns the parsed scene list.
func (t *Toolset) DetectScenes(ctx context.Context, input, outDir string) ([]Scene, error) {
	out, err := t.runner.CombinedOutput(ctx, t.cfg.Tools.SceneDetect,
		"-i", input,
		"-o", outDir,
		"detect-content",
		"list-scenes",
	)
	if err != nil {
		return nil, toolError("scenedetect", out, err)
	}

	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	csvPath := filepath.Join(outDir, base+"-Scenes.csv")
	scenes, err := ParseScenesCSV(csvPath)
	if err != nil {
		return nil, err
	}
	return scenes, nil
}

// ParseScenesCSV reads a scenedetect list-scenes CSV. The file carries a
// timecode preamble line before the header row; both are skipped. Columns
// of interest are "Start Time (seconds)" and "End Time (seconds)".
func ParseScenesCSV(path string) ([]Scene, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenes csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read scenes csv: %w", err)
	}

	startCol, endCol := -1, -1
	headerRow := -1
	for i, record := range records {
		for j, field := range record {
			switch strings.TrimSpace(field) {
			case "Start Time (seconds)":
				startCol = j
				headerRow = i
			case "End Time (seconds)":
				endCol = j
			}
		}
		if startCol >= 0 && endCol >= 0 {
			break
		}
	}
	if startCol < 0 || endCol < 0 {
		return nil, fmt.Errorf("scenes csv %s: missing time columns", path)
	}

	var scenes []Scene
	for _, record := range records[headerRow+1:] {
		if len(record) <= startCol || len(record) <= endCol {
			continue
		}
		start, err := strconv.ParseFloat(strings.TrimSpace(record[startCol]), 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseFloat(strings.TrimSpace(record[endCol]), 64)
		if err != nil {
			continue
		}
		scenes = append(scenes, Scene{Start: start, End: end})
	}
	return scenes, nil
}
