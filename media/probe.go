// Package media wraps the ffprobe/ffmpeg binaries for the handful of
// probing operations the pipeline needs.
package media

import (
	"fmt"
	"os/exec"
	"strings"
)

// ProbeDuration returns the duration of a media file in seconds via ffprobe.
func ProbeDuration(path string) (float64, error) {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	var dur float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &dur); err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return dur, nil
}
