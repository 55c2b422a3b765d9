// Package media wraps the external command-line tools the pipeline stages
// delegate to: ffprobe for durations, ffmpeg for silence removal and
// highlight cuts, scenedetect for scene boundaries. The wrappers are
// deliberately thin; the tools' internals are outside this system.
package media
