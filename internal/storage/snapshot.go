package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Snapshot is a point-in-time capture of the contract state: the canonical
// state digest plus the sequence number it was taken at. Recovery loads the
// latest snapshot and replays only the log tail after it.
type Snapshot struct {
	Seq    uint64 `json:"seq"`
	TsUnix int64  `json:"ts"`
	Digest []byte `json:"digest"`
}

// SnapshotManager handles saving and loading snapshots.
type SnapshotManager struct {
	dir string
}

// NewSnapshotManager creates a manager writing into dir.
func NewSnapshotManager(dir string) *SnapshotManager {
	return &SnapshotManager{dir: dir}
}

// CreateSnapshot wraps a state digest taken at seq.
func CreateSnapshot(seq uint64, digest []byte) *Snapshot {
	return &Snapshot{
		Seq:    seq,
		TsUnix: time.Now().Unix(),
		Digest: digest,
	}
}

// Save writes a snapshot to disk.
func (sm *SnapshotManager) Save(snap *Snapshot) error {
	if err := os.MkdirAll(sm.dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	filename := fmt.Sprintf("snapshot_%d_%d.json", snap.Seq, snap.TsUnix)
	path := filepath.Join(sm.dir, filename)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	slog.Info("Snapshot saved",
		slog.Uint64("seq", snap.Seq),
		slog.String("path", path))
	return nil
}

// LoadLatest loads the snapshot with the highest sequence number, nil if
// none exists.
func (sm *SnapshotManager) LoadLatest() (*Snapshot, error) {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot dir: %w", err)
	}

	var latestPath string
	var latestSeq uint64
	var found bool

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var seq uint64
		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), "snapshot_%d_%d.json", &seq, &ts); err != nil {
			continue // not a snapshot file
		}
		if !found || seq > latestSeq {
			found = true
			latestSeq = seq
			latestPath = filepath.Join(sm.dir, entry.Name())
		}
	}

	if !found {
		return nil, nil
	}

	data, err := os.ReadFile(latestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	slog.Info("Snapshot loaded",
		slog.Uint64("seq", snap.Seq),
		slog.String("path", latestPath))
	return &snap, nil
}

// Cleanup removes old snapshots, keeping only the latest keepCount.
func (sm *SnapshotManager) Cleanup(keepCount int) error {
	entries, err := os.ReadDir(sm.dir)
	if err != nil {
		return err
	}

	type snapFile struct {
		path string
		seq  uint64
	}
	var files []snapFile

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var seq uint64
		var ts int64
		if _, err := fmt.Sscanf(entry.Name(), "snapshot_%d_%d.json", &seq, &ts); err == nil {
			files = append(files, snapFile{path: filepath.Join(sm.dir, entry.Name()), seq: seq})
		}
	}

	if len(files) <= keepCount {
		return nil
	}

	// Sort descending by sequence (small N)
	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if files[j].seq > files[i].seq {
				files[i], files[j] = files[j], files[i]
			}
		}
	}

	for i := keepCount; i < len(files); i++ {
		if err := os.Remove(files[i].path); err != nil {
			slog.Warn("Failed to remove old snapshot", slog.String("path", files[i].path))
		}
	}
	return nil
}
