package media

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
)

// ExtractHighlights cuts the most promising scenes out of input into
// outDir, returning the written file paths. Scenes are filtered by the
// configured duration bounds, longest first, capped at the configured
// count, and cut with stream copy so no re-encode happens.
func (t *Toolset) ExtractHighlights(ctx context.Context, input string, scenes []Scene, outDir string) ([]string, error) {
	selected := SelectHighlightScenes(scenes, t.cfg.Highlights.MinDuration, t.cfg.Highlights.MaxDuration, t.cfg.Highlights.MaxCount)

	written := make([]string, 0, len(selected))
	for i, scene := range selected {
		outPath := filepath.Join(outDir, fmt.Sprintf("highlight_%02d.mp4", i+1))
		out, err := t.runner.CombinedOutput(ctx, t.cfg.Tools.FFmpeg,
			"-ss", fmt.Sprintf("%.3f", scene.Start),
			"-i", input,
			"-t", fmt.Sprintf("%.3f", scene.Duration()),
			"-c", "copy",
			"-y", outPath,
		)
		if err != nil {
			return written, toolError("ffmpeg highlight cut", out, err)
		}
		written = append(written, outPath)
	}
	return written, nil
}

// SelectHighlightScenes filters scenes to those within [minDur, maxDur],
// orders them longest first, and keeps at most maxCount. The returned
// slice is ordered by start time so highlight numbering follows the video.
func SelectHighlightScenes(scenes []Scene, minDur, maxDur float64, maxCount int) []Scene {
	candidates := make([]Scene, 0, len(scenes))
	for _, scene := range scenes {
		d := scene.Duration()
		if d < minDur || d > maxDur {
			continue
		}
		candidates = append(candidates, scene)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Duration() > candidates[j].Duration()
	})
	if maxCount > 0 && len(candidates) > maxCount {
		candidates = candidates[:maxCount]
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Start < candidates[j].Start
	})
	return candidates
}
