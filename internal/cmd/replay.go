package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/tui"
)

var (
	replayVerbose bool
	replayPace    bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <transcript.jsonl>",
	Short: "Print a recorded run",
	Long: `Print a JSONL transcript written by 'run --transcript' or by the server's
events.transcript_dir, formatted like a live run.

Use --pace to reproduce the original timing between events.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "include streamed model output")
	replayCmd.Flags().BoolVar(&replayPace, "pace", false, "sleep between events as recorded")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	defer f.Close()

	return replay(cmd, event.NewTranscriptReader(f), tui.NewPrinter(cmd.OutOrStdout(), tui.TerminalWidth(os.Stdout), replayVerbose))
}

func replay(cmd *cobra.Command, reader *event.TranscriptReader, printer *tui.Printer) error {
	var last time.Time
	for {
		rec, ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("transcript: %w", err)
		}

		if replayPace && !last.IsZero() {
			select {
			case <-time.After(rec.Time.Sub(last)):
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
		}
		last = rec.Time
		printer.Handle(ev)
	}
}
