package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spboyer/gauntlet/internal/gate"
	"github.com/spboyer/gauntlet/internal/models"
	"github.com/spf13/cobra"
)

func newGateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gate <report.json> <thresholds.yaml>",
		Short: "Re-validate an existing report against thresholds",
		Long: `Validate a previously written report JSON against a threshold
configuration without re-running the experiment. Useful for re-gating in CI
after thresholds change.`,
		Args: cobra.ExactArgs(2),
		RunE: gateCommandE,
	}
}

func gateCommandE(cmd *cobra.Command, args []string) error {
	report, err := readReport(args[0])
	if err != nil {
		return err
	}

	thresholds, err := models.LoadThresholdConfig(args[1])
	if err != nil {
		return err
	}

	result := gate.Validate(report, thresholds)
	printGateResult(cmd.OutOrStdout(), result)

	if !result.Passed {
		return &GateFailureError{Message: result.Summary}
	}
	return nil
}

func readReport(path string) (*models.ExperimentReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var report models.ExperimentReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &report, nil
}
