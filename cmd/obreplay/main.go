package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/infra"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/replay"
)

// obreplay rebuilds state from an action log in a fresh sequencer and
// prints the resulting digest. With -expect it verifies the log replays to
// a specific digest, exiting non-zero on divergence.
func main() {
	var (
		dbPath    = flag.String("db", "", "action log path (default: workspace data/actions.db)")
		expectHex = flag.String("expect", "", "expected digest in hex; verify instead of just replaying")
	)
	flag.Parse()

	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(infra.NewLogger(cfg))

	path := *dbPath
	if path == "" {
		path = filepath.Join(infra.GetWorkspaceDir(), "data", "actions.db")
	}

	var expected []byte
	if *expectHex != "" {
		expected, err = hex.DecodeString(*expectHex)
		if err != nil {
			slog.Error("Invalid -expect digest", slog.Any("error", err))
			os.Exit(1)
		}
	}

	replayer, err := replay.NewReplayer(path)
	if err != nil {
		slog.Error("Failed to open action log", slog.String("path", path), slog.Any("error", err))
		os.Exit(1)
	}
	defer replayer.Close()

	digest, err := replayer.Verify(context.Background(), cfg.Node.ContractName, expected)
	if err != nil {
		slog.Error("Replay verification failed", slog.Any("error", err))
		os.Exit(1)
	}

	fmt.Printf("digest=%s\n", hex.EncodeToString(digest))
}
