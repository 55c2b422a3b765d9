package media

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// interval is a half-open [Start, End) window in seconds.
type interval struct {
	Start float64
	End   float64
}

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*([0-9.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*([0-9.]+)`)
)

// RemoveSilence produces a copy of input at output with silent stretches cut
// out. Detection and cutting are two ffmpeg passes: silencedetect first,
// then a select/aselect filter keeping the loud windows. When no silence is
// found the input is re-encoded unchanged.
func (t *Toolset) RemoveSilence(ctx context.Context, input, output string) error {
	out, err := t.runner.CombinedOutput(ctx, t.cfg.Tools.FFmpeg,
		"-i", input,
		"-af", fmt.Sprintf("silencedetect=noise=%gdB:d=%g", t.cfg.Silence.NoiseDB, t.cfg.Silence.MinDuration),
		"-f", "null", "-",
	)
	if err != nil {
		return toolError("ffmpeg silencedetect", out, err)
	}

	silences := parseSilenceIntervals(string(out))
	keepExpr := buildKeepExpression(silences)

	args := []string{"-i", input}
	if keepExpr != "" {
		args = append(args,
			"-vf", "select='"+keepExpr+"',setpts=N/FRAME_RATE/TB",
			"-af", "aselect='"+keepExpr+"',asetpts=N/SR/TB",
		)
	}
	args = append(args, "-y", output)

	out, err = t.runner.CombinedOutput(ctx, t.cfg.Tools.FFmpeg, args...)
	if err != nil {
		return toolError("ffmpeg silence removal", out, err)
	}
	return nil
}

// parseSilenceIntervals pairs silence_start/silence_end markers from
// silencedetect output. A trailing silence_start without a matching end
// (silence running to EOF) yields an interval with End = -1.
func parseSilenceIntervals(output string) []interval {
	var intervals []interval
	var pending *float64

	for _, line := range strings.Split(output, "\n") {
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				start := v
				pending = &start
			}
			continue
		}
		if m := silenceEndRe.FindStringSubmatch(line); m != nil && pending != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				intervals = append(intervals, interval{Start: *pending, End: v})
			}
			pending = nil
		}
	}
	if pending != nil {
		intervals = append(intervals, interval{Start: *pending, End: -1})
	}
	return intervals
}

// buildKeepExpression renders an ffmpeg select expression that is true
// outside the silent windows. Empty when there is nothing to cut.
func buildKeepExpression(silences []interval) string {
	if len(silences) == 0 {
		return ""
	}
	terms := make([]string, 0, len(silences))
	for _, s := range silences {
		if s.End < 0 {
			terms = append(terms, fmt.Sprintf("lt(t,%g)", s.Start))
			continue
		}
		terms = append(terms, fmt.Sprintf("not(between(t,%g,%g))", s.Start, s.End))
	}
	return strings.Join(terms, "*")
}
