package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tokenarcade/relay/service/temporal"
)

func followupCommands() *cli.Command {
	return &cli.Command{
		Name:  "followup",
		Usage: "Confirmation follow-up workflow commands",
		Subcommands: []*cli.Command{
			followupStartCommand(),
		},
	}
}

// followupStartCommand manually kicks off a confirmation follow-up for a
// signature, e.g. for a submission whose workflow was lost or that was
// submitted outside the relay.
func followupStartCommand() *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Start a confirmation follow-up workflow for a signature",
		ArgsUsage: "SIGNATURE",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "submission-id",
				Usage: "Journal submission ID to update when the follow-up resolves",
			},
			&cli.StringFlag{
				Name:  "signer",
				Usage: "Signer address recorded on the terminal event",
			},
			&cli.IntFlag{
				Name:  "max-rounds",
				Usage: "Number of status checks before giving up (0 uses the default)",
			},
			&cli.DurationFlag{
				Name:  "round-interval",
				Usage: "Delay between status checks (0 uses the default)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("signature is required")
			}
			signature := c.Args().Get(0)

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelError,
			}))

			tc, err := temporal.NewClient(
				c.String("temporal-address"),
				c.String("temporal-namespace"),
				c.String("temporal-task-queue"),
				logger,
			)
			if err != nil {
				return fmt.Errorf("failed to connect to temporal: %w", err)
			}
			defer tc.Close()

			input := temporal.FollowUpInput{
				SubmissionID:  c.String("submission-id"),
				Signature:     signature,
				Signer:        c.String("signer"),
				MaxRounds:     c.Int("max-rounds"),
				RoundInterval: c.Duration("round-interval"),
			}

			if err := tc.StartFollowUp(context.Background(), input); err != nil {
				return fmt.Errorf("failed to start follow-up: %w", err)
			}

			fmt.Printf("Follow-up started for %s\n", signature)
			return nil
		},
	}
}
