package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/espalierhq/espalier/internal/loader"
	"github.com/espalierhq/espalier/internal/logging"
	"github.com/espalierhq/espalier/internal/presentation/tui"
	"github.com/espalierhq/espalier/pkg/adapters/memory"
	"github.com/espalierhq/espalier/pkg/flow"
	"github.com/espalierhq/espalier/pkg/session"
)

// runCmd walks a survey interactively in the terminal, the fastest way to
// try a definition while authoring it.
var runCmd = &cobra.Command{
	Use:   "run <survey.yaml>",
	Short: "Walk a survey interactively in the terminal",
	Long:  `Loads a survey definition, validates it, and walks you through it as a respondent would experience it. State lives in memory; nothing is persisted.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		respondent, _ := cmd.Flags().GetString("respondent")
		if err := runInteractive(cmd.Context(), args[0], respondent); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("respondent", "local", "Respondent identifier recorded on the response")
}

func runInteractive(ctx context.Context, path, respondent string) error {
	s, err := loader.FromFile(path)
	if err != nil {
		return err
	}

	surveys := memory.NewSurveyStore()
	if err := surveys.SaveSurvey(ctx, s); err != nil {
		return err
	}
	stored, err := surveys.Survey(ctx, s.ID)
	if err != nil {
		return err
	}
	if err := flow.Activate(stored); err != nil {
		return err
	}
	if err := surveys.Activate(ctx, stored.ID, stored.Version); err != nil {
		return err
	}

	walker := session.NewWalker(surveys, memory.NewResponseStore(),
		session.WithLogger(logging.NewNop()),
	)
	chat := tui.NewChat(walker,
		tui.WithIO(os.Stdin, os.Stdout),
		tui.WithRenderer(tui.NewRenderer()),
	)

	err = chat.Run(ctx, stored.ID, respondent)
	if errors.Is(err, io.EOF) {
		fmt.Println("\nBye!")
		return nil
	}
	return err
}
