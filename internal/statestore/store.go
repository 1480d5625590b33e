package statestore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

// Record is one VM's persisted state from the previous reporting cycle.
// ObservedAt is kept as the raw RFC3339 string so a single malformed
// timestamp can never poison the rest of the store.
type Record struct {
	Name          string  `json:"display_name"`
	Hostname      string  `json:"network_host"`
	Address       string  `json:"address"`
	Online        bool    `json:"is_online"`
	Available     int     `json:"available"`
	Status        int     `json:"status"`
	ObservedAt    string  `json:"observed_at"`
	AlertStatus   string  `json:"alert_status"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
}

// ObservedTime parses the record's timestamp. ok is false when the
// timestamp is missing or unparsable.
func (r Record) ObservedTime() (t time.Time, ok bool) {
	if r.ObservedAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, r.ObservedAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// State maps a VM identity to its last persisted record.
type State map[string]Record

// RecordOf builds a Record from a snapshot. alertStatus is the derived
// per-VM status string ("ok", "warning", "critical", "offline").
func RecordOf(snap types.Snapshot, alertStatus string) Record {
	return Record{
		Name:          snap.Name,
		Hostname:      snap.Hostname,
		Address:       snap.Address,
		Online:        snap.Online,
		Available:     snap.Available,
		Status:        snap.Status,
		ObservedAt:    snap.ObservedAt.Format(time.RFC3339),
		AlertStatus:   alertStatus,
		CPUPercent:    snap.CPUPercent,
		MemoryPercent: snap.MemoryPercent,
		DiskPercent:   snap.DiskPercent,
	}
}

// Store reads and writes the state file. It expects the caller to serialize
// cycles; there is no internal locking.
type Store struct {
	path string
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store backed by the file at path. The file does not need
// to exist yet.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the persisted state. A missing or corrupt file yields an
// empty State (first-run semantics), never an error that would abort the
// cycle.
func (s *Store) Load() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("statestore: read failed — starting from empty state",
				"path", s.path, "err", err)
		}
		return State{}
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		slog.Warn("statestore: corrupt state file — starting from empty state",
			"path", s.path, "err", err)
		return State{}
	}
	if st == nil {
		st = State{}
	}
	return st
}

// Replace atomically overwrites the state file with st. The new content is
// written to a temp file in the same directory and renamed into place, so
// an interrupted write leaves the previous state intact.
func (s *Store) Replace(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("statestore: encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("statestore: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("statestore: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("statestore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("statestore: rename into place: %w", err)
	}
	return nil
}

// Prune removes entries whose ObservedAt is older than now minus retain
// and persists the result. Entries with missing or unparsable timestamps
// are kept — ambiguous data is never silently discarded. Returns the
// number of entries removed.
func (s *Store) Prune(retain time.Duration) (int, error) {
	st := s.Load()
	cutoff := s.now().Add(-retain)

	removed := 0
	for id, rec := range st {
		t, ok := rec.ObservedTime()
		if !ok {
			continue
		}
		if t.Before(cutoff) {
			delete(st, id)
			removed++
		}
	}

	if removed == 0 {
		return 0, nil
	}
	if err := s.Replace(st); err != nil {
		return removed, err
	}
	return removed, nil
}
