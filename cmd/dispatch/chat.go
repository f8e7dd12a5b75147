package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-dispatch/runtime"
)

const (
	goodbye    = "Helper: Goodbye."
	userPrompt = "You: "
)

// closeTimeout bounds archive and exporter shutdown.
const closeTimeout = 5 * time.Second

func newChatCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive support conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), flags, keepSessionsAlive)
			if err != nil {
				return err
			}
			defer closeApp(a)
			return chatLoop(cmd.Context(), a.rt, flags.sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newAskCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Route a single question and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer closeApp(a)

			res, err := a.rt.Execute(cmd.Context(), &runtime.Request{
				SessionID: flags.sessionID,
				Input:     strings.Join(args, " "),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Output)
			return nil
		},
	}
}

// chatLoop reads one question per line until EOF or "exit"/"quit".
// Blank lines are ignored.
func chatLoop(ctx context.Context, exec runtime.Executor, sessionID string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			break
		}

		res, err := exec.Execute(ctx, &runtime.Request{SessionID: sessionID, Input: line})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Output)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, goodbye)
	return scanner.Err()
}

func closeApp(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	_ = a.Close(ctx)
}
