package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"lab-compare-be/internal/bootstrap"
	"lab-compare-be/internal/config"
	"lab-compare-be/internal/dto"
	"lab-compare-be/internal/pkg/logger"
	"lab-compare-be/internal/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:   "intake-cli",
		Short: "Run the lab report intake flow from a terminal",
	}

	root.AddCommand(chatCMD(), compareCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func chatCMD() *cobra.Command {
	var userID string
	var chat = &cobra.Command{
		Use:   "chat",
		Short: "Interactive session: start, doc <path>, text, cancel, quit",
		RunE: func(cmd *cobra.Command, args []string) error {
			intake, err := newIntake()
			if err != nil {
				return err
			}
			defer intake.Close()
			replier := &terminalReplier{}

			color.Cyan("Type 'start' to begin, 'doc <path>' to send a PDF, 'quit' to exit.")
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				event, quit, err := parseLine(scanner.Text(), userID, time.Now())
				if quit {
					break
				}
				if err != nil {
					color.Red("%v", err)
					continue
				}
				if err := <-intake.Dispatcher.Submit(cmd.Context(), event, replier); err != nil {
					color.Red("reply failed: %v", err)
				}
			}
			return scanner.Err()
		},
	}
	chat.Flags().StringVar(&userID, "user", "local", "user id of the session")

	return chat
}

func compareCMD() *cobra.Command {
	var compare = &cobra.Command{
		Use:   "compare <first.pdf> <second.pdf>",
		Short: "Run a whole session for two files and print the replies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			intake, err := newIntake()
			if err != nil {
				return err
			}
			defer intake.Close()
			replier := &terminalReplier{}

			events := []dto.IntakeEvent{
				{Kind: dto.IntakeEventStart},
				{Kind: dto.IntakeEventDocument, Document: dto.NewFileDocument(args[0])},
				{Kind: dto.IntakeEventDocument, Document: dto.NewFileDocument(args[1])},
			}
			for _, event := range events {
				event.UserID = "cli"
				event.ReceivedAt = time.Now()
				if err := <-intake.Dispatcher.Submit(cmd.Context(), event, replier); err != nil {
					return err
				}
			}
			return nil
		},
	}

	return compare
}

func newIntake() (*bootstrap.Intake, error) {
	cfg := config.Load()
	return bootstrap.NewIntake(cfg, logger.NewIsolatedLogger(cfg.App.LogFilePath), nil)
}

type terminalReplier struct{}

var _ service.Replier = (*terminalReplier)(nil)

func (terminalReplier) SendText(_ context.Context, _ string, text string) error {
	color.Green("%s", text)
	return nil
}
