package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hindi-reels-pipeline/types"
)

func quiet() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestRecordRunCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	s := New(path, quiet())

	s.RecordRun(types.StatusCompleted, 90*time.Second)
	s.RecordRun(types.StatusFailed, 30*time.Second)
	s.RecordRun(types.StatusCompleted, 60*time.Second)

	snap := s.Snapshot()
	assert.Equal(t, 3, snap.TotalRuns)
	assert.Equal(t, 2, snap.Completed)
	assert.Equal(t, 1, snap.Failed)
	assert.InDelta(t, 60.0, snap.AvgRunSeconds, 0.001)
	assert.Equal(t, string(types.StatusCompleted), snap.LastRunStatus)
	assert.NotEmpty(t, snap.LastRunAt)
}

func TestCountersSurviveRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")

	s := New(path, quiet())
	s.RecordRun(types.StatusCompleted, time.Minute)

	reopened := New(path, quiet())
	snap := reopened.Snapshot()
	assert.Equal(t, 1, snap.TotalRuns)
	assert.Equal(t, 1, snap.Completed)
}

func TestCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := New(path, quiet())
	assert.Equal(t, Snapshot{}, s.Snapshot())
}
