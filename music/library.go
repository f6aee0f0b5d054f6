// Package music manages the local background-music library, organized as
// one folder of audio files per mood.
package music

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"hindi-reels-pipeline/types"
)

var audioExts = map[string]bool{
	".mp3": true,
	".wav": true,
	".m4a": true,
	".aac": true,
	".ogg": true,
}

// Library picks background tracks from a mood-keyed directory tree.
type Library struct {
	root string
	log  *logrus.Logger
}

// New builds a Library rooted at the configured music directory.
func New(root string, log *logrus.Logger) *Library {
	return &Library{root: root, log: log}
}

// Pick selects a random track for the mood and copies it into destDir so
// the render never touches the library files directly. Missing music is not
// an error: the video still works without a bed, so Pick returns "" and the
// caller skips the music layer.
func (l *Library) Pick(mood types.MusicMood, destDir string) string {
	tracks := l.tracksFor(mood)
	if len(tracks) == 0 {
		// Any mood folder will do before giving up entirely.
		for _, m := range types.AllMoods {
			if tracks = l.tracksFor(m); len(tracks) > 0 {
				l.log.WithFields(logrus.Fields{
					"wanted": mood,
					"using":  m,
				}).Warn("[music] mood folder empty, borrowing another mood")
				break
			}
		}
	}
	if len(tracks) == 0 {
		l.log.WithField("mood", mood).Warn("[music] no tracks available, video will have no music bed")
		return ""
	}

	src := tracks[rand.Intn(len(tracks))]
	dest := filepath.Join(destDir, "music"+filepath.Ext(src))
	if err := copyFile(src, dest); err != nil {
		l.log.WithError(err).Warn("[music] could not copy track, skipping music bed")
		return ""
	}

	l.log.WithFields(logrus.Fields{"mood": mood, "track": filepath.Base(src)}).Info("[music] track selected")
	return dest
}

// Catalog returns every track grouped by mood, for the library endpoint.
func (l *Library) Catalog() map[types.MusicMood][]string {
	out := make(map[types.MusicMood][]string, len(types.AllMoods))
	for _, mood := range types.AllMoods {
		names := []string{}
		for _, p := range l.tracksFor(mood) {
			names = append(names, filepath.Base(p))
		}
		out[mood] = names
	}
	return out
}

func (l *Library) tracksFor(mood types.MusicMood) []string {
	dir := filepath.Join(l.root, string(mood))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var tracks []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if audioExts[strings.ToLower(filepath.Ext(e.Name()))] {
			tracks = append(tracks, filepath.Join(dir, e.Name()))
		}
	}
	return tracks
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}
