package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tokenarcade/relay/client"
)

// newRelayClient builds a relay API client from global flags.
func newRelayClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only errors to stderr
	}))
	httpClient := &http.Client{Timeout: 90 * time.Second}
	return client.NewClient(c.String("server"), httpClient, logger)
}

func submitCommand() *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "Submit a base64-encoded signed transaction through the relay",
		ArgsUsage: "[BASE64_TRANSACTION]",
		Description: `Submit a transaction and wait for the relay's confirmation verdict.

The transaction may be passed as an argument or read from a file. The command
blocks while the relay polls for confirmation, which can take up to 30s.

Example:
  relayctl submit --file tx.b64
  relayctl submit AQID... --json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Read the base64 transaction from a file instead of an argument",
			},
		},
		Action: func(c *cli.Context) error {
			var tx string
			if file := c.String("file"); file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read transaction file: %w", err)
				}
				tx = strings.TrimSpace(string(data))
			} else {
				if c.NArg() != 1 {
					return fmt.Errorf("a base64 transaction argument or --file is required")
				}
				tx = c.Args().Get(0)
			}

			if _, err := base64.StdEncoding.DecodeString(tx); err != nil {
				return fmt.Errorf("transaction is not valid base64: %w", err)
			}

			cl := newRelayClient(c)
			if !c.Bool("json") {
				fmt.Fprintf(os.Stderr, "Submitting transaction via %s...\n", c.String("server"))
			}

			outcome, err := cl.Submit(context.Background(), tx)
			if err != nil {
				return fmt.Errorf("submission request failed: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.Marshal(outcome)
				fmt.Println(string(data))
				return nil
			}

			if outcome.Error != "" {
				fmt.Printf("Submission failed: %s\n", outcome.Error)
				return nil
			}
			fmt.Printf("Signature:  %s\n", outcome.Signature)
			if outcome.Confirmed {
				fmt.Printf("Confirmed:  yes (slot %d)\n", outcome.Slot)
			} else {
				fmt.Printf("Confirmed:  not yet; the relay keeps checking in the background\n")
			}
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Check the live on-chain status of a signature",
		ArgsUsage: "SIGNATURE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("signature is required")
			}
			signature := c.Args().Get(0)

			cl := newRelayClient(c)
			status, err := cl.Status(context.Background(), signature)
			if err != nil {
				return fmt.Errorf("status check failed: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.Marshal(status)
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Signature:  %s\n", signature)
			fmt.Printf("State:      %s\n", status.State)
			if status.Slot > 0 {
				fmt.Printf("Slot:       %d\n", status.Slot)
			}
			if status.Error != "" {
				fmt.Printf("Error:      %s\n", status.Error)
			}
			return nil
		},
	}
}

func walletCommands() *cli.Command {
	return &cli.Command{
		Name:  "wallet",
		Usage: "Wallet inspection commands",
		Subcommands: []*cli.Command{
			{
				Name:  "info",
				Usage: "Show the relay's signing wallet",
				Action: func(c *cli.Context) error {
					cl := newRelayClient(c)
					info, err := cl.Wallet(context.Background())
					if err != nil {
						return fmt.Errorf("failed to get wallet info: %w", err)
					}

					if c.Bool("json") {
						data, _ := json.Marshal(info)
						fmt.Println(string(data))
						return nil
					}

					if !info.Configured {
						fmt.Println("Wallet: not configured (relay is read-only)")
						return nil
					}
					fmt.Printf("Wallet: %s\n", info.PublicKey)
					return nil
				},
			},
			{
				Name:      "balance",
				Usage:     "Show a wallet's SOL balance in lamports",
				ArgsUsage: "ADDRESS",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("wallet address is required")
					}
					address := c.Args().Get(0)

					cl := newRelayClient(c)
					lamports, err := cl.Balance(context.Background(), address)
					if err != nil {
						return fmt.Errorf("failed to get balance: %w", err)
					}

					if c.Bool("json") {
						data, _ := json.Marshal(map[string]interface{}{
							"address":  address,
							"lamports": lamports,
						})
						fmt.Println(string(data))
						return nil
					}

					fmt.Printf("%d lamports (%.9f SOL)\n", lamports, float64(lamports)/1e9)
					return nil
				},
			},
			{
				Name:      "token-balance",
				Usage:     "Show a wallet's raw token amount for a mint",
				ArgsUsage: "ADDRESS MINT",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("wallet address and mint are required")
					}
					address := c.Args().Get(0)
					mint := c.Args().Get(1)

					cl := newRelayClient(c)
					amount, err := cl.TokenBalance(context.Background(), address, mint)
					if err != nil {
						return fmt.Errorf("failed to get token balance: %w", err)
					}

					if c.Bool("json") {
						data, _ := json.Marshal(map[string]interface{}{
							"address": address,
							"mint":    mint,
							"amount":  amount,
						})
						fmt.Println(string(data))
						return nil
					}

					fmt.Printf("%d (raw units)\n", amount)
					return nil
				},
			},
		},
	}
}

func tokenCommands() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Token inspection commands",
		Subcommands: []*cli.Command{
			{
				Name:      "decimals",
				Usage:     "Show a mint's decimal count",
				ArgsUsage: "MINT",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("mint is required")
					}
					mint := c.Args().Get(0)

					cl := newRelayClient(c)
					decimals, err := cl.Decimals(context.Background(), mint)
					if err != nil {
						return fmt.Errorf("failed to get decimals: %w", err)
					}

					if c.Bool("json") {
						data, _ := json.Marshal(map[string]interface{}{
							"mint":     mint,
							"decimals": decimals,
						})
						fmt.Println(string(data))
						return nil
					}

					fmt.Printf("%d\n", decimals)
					return nil
				},
			},
			{
				Name:      "concentration",
				Usage:     "Show holder concentration for a mint",
				ArgsUsage: "MINT",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("mint is required")
					}
					mint := c.Args().Get(0)

					cl := newRelayClient(c)
					conc, err := cl.Concentration(context.Background(), mint)
					if err != nil {
						return fmt.Errorf("failed to get concentration: %w", err)
					}

					if c.Bool("json") {
						data, _ := json.Marshal(map[string]interface{}{
							"mint":          mint,
							"concentration": conc,
						})
						fmt.Println(string(data))
						return nil
					}

					if conc == nil {
						fmt.Println("Concentration: unknown (lookup could not be completed)")
						return nil
					}
					fmt.Printf("Top 5 holders:   %.2f%%\n", conc.Top5Pct)
					fmt.Printf("Top 10 holders:  %.2f%%\n", conc.Top10Pct)
					fmt.Printf("Largest holder:  %.2f%%\n", conc.LargestPct)
					return nil
				},
			},
		},
	}
}

func submissionsCommands() *cli.Command {
	return &cli.Command{
		Name:  "submissions",
		Usage: "Submission journal commands",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent submissions, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of rows",
						Value:   20,
					},
					&cli.StringSliceFlag{
						Name:    "must-jq",
						Aliases: []string{"jq"},
						Usage:   "jq filter that must evaluate to true (can be repeated, all must match)",
					},
				},
				Action: func(c *cli.Context) error {
					filters, err := compileJQFilters(c.StringSlice("must-jq"))
					if err != nil {
						return err
					}

					cl := newRelayClient(c)
					subs, err := cl.ListSubmissions(context.Background(), c.Int("limit"))
					if err != nil {
						return fmt.Errorf("failed to list submissions: %w", err)
					}

					shown := 0
					for _, sub := range subs {
						if len(filters) > 0 {
							match, err := matchesJQFilters(filters, sub)
							if err != nil {
								return err
							}
							if !match {
								continue
							}
						}
						shown++

						if c.Bool("json") {
							data, _ := json.Marshal(sub)
							fmt.Println(string(data))
							continue
						}

						sig := "(none)"
						if sub.Signature != nil {
							sig = *sub.Signature
						}
						fmt.Printf("─────────────────────────────────────────────────────\n")
						fmt.Printf("ID:         %s\n", sub.ID)
						fmt.Printf("Signature:  %s\n", sig)
						fmt.Printf("Status:     %s\n", sub.Status)
						fmt.Printf("Attempts:   %d\n", sub.Attempts)
						if sub.Slot != nil {
							fmt.Printf("Slot:       %d\n", *sub.Slot)
						}
						if sub.Error != nil {
							fmt.Printf("Error:      %s\n", *sub.Error)
						}
						fmt.Printf("Created:    %s\n", sub.CreatedAt.Format(time.RFC3339))
					}

					if !c.Bool("json") && shown == 0 {
						fmt.Println("No submissions found")
					}
					return nil
				},
			},
			{
				Name:      "get",
				Usage:     "Show the journal row for a signature",
				ArgsUsage: "SIGNATURE",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("signature is required")
					}

					cl := newRelayClient(c)
					sub, err := cl.GetSubmission(context.Background(), c.Args().Get(0))
					if err != nil {
						return fmt.Errorf("failed to get submission: %w", err)
					}

					data, _ := json.MarshalIndent(sub, "", "  ")
					fmt.Println(string(data))
					return nil
				},
			},
		},
	}
}
