package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/client"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/domain"
	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/infra"
	"github.com/armanthepythonguy/zkOrderbook-hyle/pkg/quant"
)

var (
	flagNode     string
	flagIdentity string
)

func main() {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "obctl",
		Short:         "Submit actions to an orderbook node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagNode, "node", cfg.Client.NodeURL, "node base URL")
	root.PersistentFlags().StringVar(&flagIdentity, "identity", cfg.Client.Identity, "submitting identity")

	root.AddCommand(
		registerCmd(),
		depositCmd(cfg),
		orderCmd(),
		stateCmd(),
		digestCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newClient() *client.Client {
	return client.New(flagNode, flagIdentity)
}

func registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register <base-asset>",
		Short: "Deploy the orderbook with its base asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newClient().Register(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("seq=%d %s\n", res.Seq, res.Message)
			return nil
		},
	}
}

func depositCmd(cfg *infra.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <token> <amount>",
		Short: "Credit the identity with tokens",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[1], err)
			}
			res, err := newClient().Deposit(cmd.Context(), cfg.Node.ContractName, args[0], amount)
			if err != nil {
				return err
			}
			fmt.Printf("seq=%d %s\n", res.Seq, res.Message)
			return nil
		},
	}
}

func orderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order <market> <ask|bid> <price> <quantity>",
		Short: "Insert an order on a market",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			side := domain.Side(args[1])
			if !side.Valid() {
				return fmt.Errorf("side must be ask or bid, got %q", args[1])
			}
			price, err := quant.ParsePrice(args[2])
			if err != nil {
				return err
			}
			quantity, err := quant.ParseQuantity(args[3])
			if err != nil {
				return err
			}
			res, err := newClient().InsertOrder(cmd.Context(), args[0], side, price, quantity)
			if err != nil {
				return err
			}
			fmt.Printf("seq=%d %s %s @ %s\n", res.Seq, side, args[3], quant.FormatPrice(price))
			return nil
		},
	}
}

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the node's current orderbook state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := newClient().GetState(cmd.Context())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(state, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func digestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "digest",
		Short: "Print the node's current state digest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newClient().GetDigest(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("seq=%d digest=%s\n", res.Seq, hex.EncodeToString(res.Digest))
			return nil
		},
	}
}
