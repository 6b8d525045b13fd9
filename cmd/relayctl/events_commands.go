package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/urfave/cli/v2"

	"github.com/tokenarcade/relay/service/events"
)

func eventsCommands() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Submission lifecycle event commands",
		Subcommands: []*cli.Command{
			watchCommand(),
			inspectStreamCommand(),
		},
	}
}

// watchCommand streams submission lifecycle events from NATS.
func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Stream submission lifecycle events",
		Description: `Subscribe to submission events published to NATS JetStream.

Events are published to submissions.{status}. Without --status all statuses
are streamed.

Example:
  relayctl events watch --status failed --json
  relayctl events watch --jq '.attempts > 3'`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only stream events with this status (submitted, confirmed, failed, unconfirmed)",
			},
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Aliases: []string{"jq"},
				Usage:   "jq filter that must evaluate to true (can be repeated, all must match)",
			},
			&cli.BoolFlag{
				Name:    "durable",
				Aliases: []string{"d"},
				Usage:   "Create a durable consumer (survives restarts)",
			},
			&cli.StringFlag{
				Name:  "consumer-name",
				Usage: "Consumer name (required for durable)",
				Value: "relayctl",
			},
		},
		Action: func(c *cli.Context) error {
			filters, err := compileJQFilters(c.StringSlice("must-jq"))
			if err != nil {
				return err
			}

			natsURL := c.String("nats-url")
			jsonOutput := c.Bool("json")

			subject := events.StreamSubjects
			if status := c.String("status"); status != "" {
				subject = "submissions." + status
			}

			nc, err := nats.Connect(natsURL)
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer nc.Close()

			js, err := jetstream.New(nc)
			if err != nil {
				return fmt.Errorf("failed to create JetStream context: %w", err)
			}

			consumerConfig := jetstream.ConsumerConfig{
				FilterSubject: subject,
				AckPolicy:     jetstream.AckExplicitPolicy,
			}
			if c.Bool("durable") {
				consumerConfig.Durable = c.String("consumer-name")
				consumerConfig.Name = c.String("consumer-name")
			}

			cons, err := js.CreateOrUpdateConsumer(context.Background(), events.StreamName, consumerConfig)
			if err != nil {
				return fmt.Errorf("failed to create consumer: %w", err)
			}

			if !jsonOutput {
				fmt.Printf("Subscribing to: %s\n", subject)
				fmt.Printf("NATS: %s\n", natsURL)
				fmt.Printf("\nWaiting for events... (Ctrl-C to exit)\n\n")
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			msgChan := make(chan jetstream.Msg, 10)
			go func() {
				_, _ = cons.Consume(func(msg jetstream.Msg) {
					msgChan <- msg
				})
			}()

			count := 0
			for {
				select {
				case msg := <-msgChan:
					var event events.SubmissionEvent
					if err := json.Unmarshal(msg.Data(), &event); err != nil {
						fmt.Fprintf(os.Stderr, "Error parsing event: %v\n", err)
						msg.Ack()
						continue
					}

					if len(filters) > 0 {
						match, err := matchesJQFilters(filters, &event)
						if err != nil || !match {
							msg.Ack()
							continue
						}
					}

					count++

					if jsonOutput {
						data, _ := json.Marshal(event)
						fmt.Println(string(data))
					} else {
						sig := "(none)"
						if event.Signature != nil {
							sig = *event.Signature
						}
						fmt.Printf("─────────────────────────────────────────────────────\n")
						fmt.Printf("Event #%d\n", count)
						fmt.Printf("─────────────────────────────────────────────────────\n")
						fmt.Printf("ID:         %s\n", event.ID)
						fmt.Printf("Signature:  %s\n", sig)
						fmt.Printf("Status:     %s\n", event.Status)
						fmt.Printf("Attempts:   %d\n", event.Attempts)
						if event.Slot != nil {
							fmt.Printf("Slot:       %d\n", *event.Slot)
						}
						if event.Error != nil {
							fmt.Printf("Error:      %s\n", *event.Error)
						}
						fmt.Printf("Published:  %s\n\n", event.PublishedAt.Format(time.RFC3339))
					}

					msg.Ack()

				case <-sigChan:
					if !jsonOutput {
						fmt.Printf("\n\nReceived %d event(s)\n", count)
						fmt.Println("Shutting down...")
					}
					return nil
				}
			}
		},
	}
}

// inspectStreamCommand shows information about the SUBMISSIONS stream.
func inspectStreamCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect-stream",
		Usage: "Inspect the SUBMISSIONS JetStream stream",
		Action: func(c *cli.Context) error {
			nc, err := nats.Connect(c.String("nats-url"))
			if err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}
			defer nc.Close()

			js, err := jetstream.New(nc)
			if err != nil {
				return fmt.Errorf("failed to create JetStream context: %w", err)
			}

			stream, err := js.Stream(context.Background(), events.StreamName)
			if err != nil {
				return fmt.Errorf("failed to get stream: %w", err)
			}

			info, err := stream.Info(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get stream info: %w", err)
			}

			if c.Bool("json") {
				data, _ := json.MarshalIndent(info, "", "  ")
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Stream: %s\n", info.Config.Name)
			fmt.Printf("─────────────────────────────────────────────────────\n")
			fmt.Printf("Subjects:     %v\n", info.Config.Subjects)
			fmt.Printf("Messages:     %d\n", info.State.Msgs)
			fmt.Printf("Bytes:        %d\n", info.State.Bytes)
			fmt.Printf("First Seq:    %d\n", info.State.FirstSeq)
			fmt.Printf("Last Seq:     %d\n", info.State.LastSeq)
			fmt.Printf("Consumers:    %d\n", info.State.Consumers)
			fmt.Printf("Max Age:      %s\n", info.Config.MaxAge)
			return nil
		},
	}
}
