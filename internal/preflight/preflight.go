package preflight

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"vodmill/internal/config"
)

// Free space required on the output filesystem before the daemon starts.
// Highlight extraction writes stream copies, so a full disk fails jobs
// mid-stage rather than up front.
const minFreeBytes = 2 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes every startup check for the given config. Failures of
// non-optional checks should stop the daemon from starting.
func RunAll(cfg *config.Config) []Result {
	results := []Result{
		CheckDirectoryAccess("Input directory", cfg.Paths.InputDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckBinary("ffmpeg", cfg.Tools.FFmpeg, false),
		CheckBinary("ffprobe", cfg.Tools.FFprobe, false),
		CheckBinary("scenedetect", cfg.Tools.SceneDetect, false),
		CheckDiskSpace("Output free space", cfg.Paths.OutputDir),
	}
	return results
}

// Failed filters results down to the non-optional failures.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed && !result.Optional {
			failed = append(failed, result)
		}
	}
	return failed
}

// CheckDirectoryAccess verifies the directory exists and is readable and
// writable by this process.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBinary verifies that an external tool resolves on PATH, or exists
// when configured as an absolute path.
func CheckBinary(name, command string, optional bool) Result {
	result := Result{Name: name, Optional: optional}
	if command == "" {
		result.Detail = "command not configured"
		return result
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", command)
		return result
	}
	result.Passed = true
	result.Detail = resolved
	return result
}

// CheckDiskSpace verifies the filesystem behind path has headroom for at
// least one job's worth of output. Low space is a warning, not a hard
// failure; the operator may know a cleanup is imminent.
func CheckDiskSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("statfs %s: %v", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		return Result{
			Name:     name,
			Optional: true,
			Detail:   fmt.Sprintf("%.1f GiB free, below %.1f GiB minimum", float64(free)/(1<<30), float64(minFreeBytes)/(1<<30)),
		}
	}
	return Result{Name: name, Passed: true, Optional: true, Detail: fmt.Sprintf("%.1f GiB free", float64(free)/(1<<30))}
}
