// Package metrics keeps simple run counters, persisted as a flat JSON file
// so numbers survive restarts.
package metrics

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"hindi-reels-pipeline/types"
)

// Snapshot is the externally visible counter state.
type Snapshot struct {
	TotalRuns       int     `json:"total_runs"`
	Completed       int     `json:"completed"`
	Failed          int     `json:"failed"`
	TotalRunSeconds float64 `json:"total_run_seconds"`
	AvgRunSeconds   float64 `json:"avg_run_seconds"`
	LastRunAt       string  `json:"last_run_at,omitempty"`
	LastRunStatus   string  `json:"last_run_status,omitempty"`
}

// Store records pipeline runs.
type Store struct {
	mu   sync.Mutex
	path string
	log  *logrus.Logger
	snap Snapshot
}

// New opens (or starts) the metrics file at path.
func New(path string, log *logrus.Logger) *Store {
	s := &Store{path: path, log: log}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &s.snap); err != nil {
			log.WithError(err).Warn("[metrics] corrupt metrics file, starting fresh")
			s.snap = Snapshot{}
		}
	}
	return s
}

// RecordRun counts one finished pipeline run.
func (s *Store) RecordRun(status types.Status, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.TotalRuns++
	switch status {
	case types.StatusCompleted:
		s.snap.Completed++
	case types.StatusFailed:
		s.snap.Failed++
	}
	s.snap.TotalRunSeconds += duration.Seconds()
	s.snap.AvgRunSeconds = s.snap.TotalRunSeconds / float64(s.snap.TotalRuns)
	s.snap.LastRunAt = time.Now().UTC().Format(time.RFC3339)
	s.snap.LastRunStatus = string(status)

	s.persist()
}

// Snapshot returns a copy of the current counters.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// persist is called with the lock held.
func (s *Store) persist() {
	data, err := json.MarshalIndent(s.snap, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		s.log.WithError(err).Warn("[metrics] could not persist metrics")
	}
}
