package replay

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/engine"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/storage"
)

// Replayer rebuilds contract state from an action log and checks the result
// against an expected digest. It feeds stored actions through the same code
// path live submissions take; any divergence means the log and the engine
// no longer agree and the node must not serve.
type Replayer struct {
	store *storage.ActionStore
}

// NewReplayer opens the action log at dbPath.
func NewReplayer(dbPath string) (*Replayer, error) {
	store, err := storage.NewActionStore(dbPath)
	if err != nil {
		return nil, err
	}
	return &Replayer{store: store}, nil
}

// Close releases the underlying store.
func (r *Replayer) Close() error {
	return r.store.Close()
}

// RunReplay replays the full action log into the provided sequencer.
func (r *Replayer) RunReplay(ctx context.Context, seq *engine.Sequencer) error {
	actions, err := r.store.LoadActions(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to load actions: %w", err)
	}

	slog.Info("Replaying action log", slog.Int("count", len(actions)))

	for _, sa := range actions {
		// Feed into sequencer synchronously for deterministic replay.
		seq.ReplayAction(sa)
	}

	return nil
}

// Verify replays the full log into a fresh sequencer and compares the
// resulting state digest to expected. A nil expected skips the comparison
// and only checks that the log replays cleanly.
func (r *Replayer) Verify(ctx context.Context, contractName string, expected []byte) ([]byte, error) {
	seq := engine.NewSequencer(contractName, 1, nil, nil)

	if err := r.RunReplay(ctx, seq); err != nil {
		return nil, err
	}

	digest, err := seq.Digest()
	if err != nil {
		return nil, fmt.Errorf("replayed state has no digest: %w", err)
	}

	if expected != nil && !bytes.Equal(digest, expected) {
		return digest, fmt.Errorf("digest mismatch after replaying %d actions", seq.LastAppliedSeq())
	}

	slog.Info("Replay verified", slog.Uint64("actions", seq.LastAppliedSeq()))
	return digest, nil
}
