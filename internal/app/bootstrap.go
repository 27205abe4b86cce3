package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/domain"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/engine"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/infra"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/server"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/storage"
)

// Bootstrap orchestrates the node startup sequence.
type Bootstrap struct {
	Config    *infra.Config
	Store     *storage.ActionStore
	Snapshots *storage.SnapshotManager
	Sequencer *engine.Sequencer
	Server    *server.Server

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization: config, logger, data
// directories, instance lock, action store, sequencer, and recovery.
func (b *Bootstrap) Initialize(ctx context.Context) error {
	// 1. Load Config (Dynamic Path Resolution)
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	slog.Info("Bootstrapping orderbook node",
		slog.String("contract", cfg.Node.ContractName))

	// 3. Data directories
	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data")
	snapDir := filepath.Join(workDir, "snapshots")

	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := infra.EnsureDir(snapDir); err != nil {
		return fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	// 3.1 Singleton instance lock: two writers on one action log would
	// fork the history.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	// 4. Action store (single-writer WAL DB)
	dbPath := filepath.Join(dataDir, "actions.db")
	store, err := storage.NewActionStore(dbPath)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("ActionStore initialized (WAL-mode)", slog.String("path", dbPath))

	// 5. Sequencer + server wiring
	srvHolder := &serverHolder{}
	seq := engine.NewSequencer(cfg.Node.ContractName, cfg.Node.InboxSize, store, srvHolder.publish)
	b.Sequencer = seq
	b.Server = server.New(seq)
	srvHolder.srv = b.Server

	// 6. Recovery: latest snapshot first, then the log tail.
	b.Snapshots = storage.NewSnapshotManager(snapDir)
	snap, err := b.Snapshots.LoadLatest()
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snap != nil {
		if err := seq.Restore(snap.Digest, snap.Seq); err != nil {
			return err
		}
	}
	if err := seq.RecoverFromLog(ctx); err != nil {
		return fmt.Errorf("failed to recover from log: %w", err)
	}

	return nil
}

// SaveSnapshot captures the current state digest, persists it, and prunes
// old snapshots.
func (b *Bootstrap) SaveSnapshot() error {
	digest, err := b.Sequencer.Digest()
	if err != nil {
		if errors.Is(err, engine.ErrNotRegistered) {
			return nil // nothing to snapshot yet
		}
		return err
	}

	snap := storage.CreateSnapshot(b.Sequencer.LastAppliedSeq(), digest)
	if err := b.Snapshots.Save(snap); err != nil {
		return err
	}
	return b.Snapshots.Cleanup(b.Config.Node.SnapshotKeep)
}

// Shutdown releases the store and the instance lock.
func (b *Bootstrap) Shutdown() {
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Error("Failed to close store", slog.Any("error", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}

// serverHolder breaks the construction cycle between the sequencer (which
// needs the update callback) and the server (which needs the sequencer).
type serverHolder struct {
	srv *server.Server
}

func (h *serverHolder) publish(seq uint64, state *domain.OrderBookState) {
	if h.srv != nil {
		h.srv.PublishUpdate(seq, state)
	}
}
