package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/espalierhq/espalier/internal/loader"
	"github.com/espalierhq/espalier/pkg/flow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <survey.yaml>",
	Short: "Check a survey graph for consistency",
	Long:  `Loads a survey definition and reports every structural problem at once: cycles, references to missing questions, and paths that can never reach the end of the survey.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args[0]); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Survey is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(path string) error {
	s, err := loader.FromFile(path)
	if err != nil {
		return err
	}

	if err := flow.Validate(s); err != nil {
		var verr *flow.ValidationError
		if errors.As(err, &verr) {
			for _, finding := range verr.Findings {
				fmt.Printf("  - %v\n", finding)
			}
		}
		return fmt.Errorf("%d problem(s) found", findingCount(err))
	}
	return nil
}

func findingCount(err error) int {
	var verr *flow.ValidationError
	if errors.As(err, &verr) {
		return len(verr.Findings)
	}
	return 1
}
