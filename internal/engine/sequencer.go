package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/action"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/domain"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/storage"
)

// Sequencer is the single-threaded action processor. It imposes the total
// order on submitted actions, persists each one log-first, and applies it
// through the contract surface. Rejected actions are logged and numbered
// too: they are part of the replayable history, and replaying them must
// reproduce the same rejections.
type Sequencer struct {
	contractName string
	inbox        chan submission
	state        *domain.OrderBookState // nil until a register action applies
	nextSeq      uint64
	store        *storage.ActionStore

	// Boundary: notifies the server hub (or tests) after each applied action.
	onStateUpdate func(seq uint64, state *domain.OrderBookState)

	mu sync.RWMutex // used only for external reads
}

type submission struct {
	identity string
	act      action.Action
	resp     chan submitResult
}

type submitResult struct {
	seq uint64
	msg string
	err error
}

// NewSequencer creates a sequencer for the named contract.
func NewSequencer(contractName string, inboxSize int, store *storage.ActionStore, onUpdate func(uint64, *domain.OrderBookState)) *Sequencer {
	return &Sequencer{
		contractName:  contractName,
		inbox:         make(chan submission, inboxSize),
		nextSeq:       1,
		store:         store,
		onStateUpdate: onUpdate,
	}
}

// Restore primes the sequencer from a snapshot digest taken at seq.
// The action log tail after seq is replayed separately by RecoverFromLog.
func (s *Sequencer) Restore(digest []byte, seq uint64) error {
	state, err := domain.StateFromDigest(digest)
	if err != nil {
		return fmt.Errorf("failed to restore snapshot at seq %d: %w", seq, err)
	}

	s.mu.Lock()
	s.state = state
	s.nextSeq = seq + 1
	s.mu.Unlock()

	slog.Info("State restored from snapshot", slog.Uint64("seq", seq))
	return nil
}

// RecoverFromLog rebuilds state by replaying the action log from nextSeq.
// Replay goes through the exact code path live submissions take, which is
// what makes the engine's output independently re-derivable.
func (s *Sequencer) RecoverFromLog(ctx context.Context) error {
	if s.store == nil {
		slog.Info("No store configured, starting fresh")
		return nil
	}

	lastSeq, err := s.store.GetLastSeq(ctx)
	if err != nil {
		return fmt.Errorf("failed to get last seq: %w", err)
	}
	if lastSeq < s.nextSeq {
		slog.Info("Action log already covered", slog.Uint64("next_seq", s.nextSeq))
		return nil
	}

	actions, err := s.store.LoadActions(ctx, s.nextSeq)
	if err != nil {
		return fmt.Errorf("failed to load actions: %w", err)
	}

	slog.Info("Replaying actions from log", slog.Int("count", len(actions)))

	for _, sa := range actions {
		s.ReplayAction(sa)
	}

	slog.Info("State recovered from log", slog.Uint64("next_seq", s.nextSeq))
	return nil
}

// ReplayAction applies one stored action synchronously without logging it
// again. Used by recovery and by the replay verifier.
func (s *Sequencer) ReplayAction(sa storage.StoredAction) {
	if sa.Seq != s.nextSeq {
		panic(fmt.Sprintf("REPLAY_GAP_DETECTED: expected %d, got %d", s.nextSeq, sa.Seq))
	}

	act, err := action.Decode(sa.Kind, sa.Payload)
	if err != nil {
		panic(fmt.Sprintf("REPLAY_DECODE_FAILURE: seq %d: %v", sa.Seq, err))
	}

	s.mu.Lock()
	next, _, err := Apply(s.state, s.contractName, sa.Identity, act)
	if err != nil {
		// A rejection during live processing is a rejection during replay;
		// the state transition is identical either way (none).
		slog.Debug("Replayed rejected action", slog.Uint64("seq", sa.Seq), slog.Any("error", err))
	}
	s.state = next
	s.nextSeq++
	s.mu.Unlock()
}

// Inbox submission: Submit hands an action to the run loop and waits for
// its result. Safe to call from any goroutine.
func (s *Sequencer) Submit(ctx context.Context, identity string, act action.Action) (uint64, string, error) {
	sub := submission{identity: identity, act: act, resp: make(chan submitResult, 1)}

	select {
	case <-ctx.Done():
		return 0, "", ctx.Err()
	case s.inbox <- sub:
	}

	select {
	case <-ctx.Done():
		return 0, "", ctx.Err()
	case res := <-sub.resp:
		return res.seq, res.msg, res.err
	}
}

// Run starts the main loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started (single-thread hotpath)",
		slog.String("contract", s.contractName))

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState("panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case sub := <-s.inbox:
			s.processSubmission(sub)
		}
	}
}

func (s *Sequencer) processSubmission(sub submission) {
	seq := s.nextSeq

	// Log-first: the action is durable before it is applied, so a crash
	// between the two reproduces the same state on recovery.
	if s.store != nil {
		payload, err := action.Encode(sub.act)
		if err != nil {
			sub.resp <- submitResult{seq: seq, err: err}
			return
		}
		sa := storage.StoredAction{
			Seq:      seq,
			Kind:     sub.act.ActionKind(),
			Identity: sub.identity,
			Payload:  payload,
		}
		if err := s.store.SaveAction(context.Background(), sa); err != nil {
			panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
		}
	}

	s.mu.Lock()
	next, msg, err := Apply(s.state, s.contractName, sub.identity, sub.act)
	s.state = next
	s.nextSeq++
	s.mu.Unlock()

	sub.resp <- submitResult{seq: seq, msg: msg, err: err}

	if err == nil && s.onStateUpdate != nil {
		s.onStateUpdate(seq, s.State())
	}
}

// State returns a deep copy of the current state for external readers, or
// nil before registration.
func (s *Sequencer) State() *domain.OrderBookState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil
	}
	return s.state.Clone()
}

// Digest returns the canonical digest of the current state.
func (s *Sequencer) Digest() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil, ErrNotRegistered
	}
	return s.state.Digest()
}

// NextSeq returns the sequence number the next submission will take.
func (s *Sequencer) NextSeq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextSeq
}

// LastAppliedSeq returns the sequence number of the last processed action,
// or 0 if none has been processed yet.
func (s *Sequencer) LastAppliedSeq() uint64 {
	return s.NextSeq() - 1
}

// DumpState writes the entire internal state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return
	}
	data, err := s.state.Digest()
	if err != nil {
		slog.Error("Failed to encode state", slog.Any("error", err))
		return
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
