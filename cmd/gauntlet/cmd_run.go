package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spboyer/gauntlet/internal/dataset"
	"github.com/spboyer/gauntlet/internal/evaluators"
	"github.com/spboyer/gauntlet/internal/execution"
	"github.com/spboyer/gauntlet/internal/gate"
	"github.com/spboyer/gauntlet/internal/hooks"
	"github.com/spboyer/gauntlet/internal/models"
	"github.com/spboyer/gauntlet/internal/orchestration"
	"github.com/spboyer/gauntlet/internal/reporting"
	"github.com/spf13/cobra"
)

var (
	outputPath  string
	junitPath   string
	verbose     bool
	interpret   bool
	concurrency int
	timeoutSec  int
	runs        int
	noGate      bool
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <experiment.yaml>",
		Short: "Run an experiment and gate the result",
		Long: `Run an experiment from a spec file.

The spec defines the dataset, the agent program, the evaluators, execution
options, and optional thresholds. The dataset path is resolved relative to
the spec file. When thresholds are configured the command exits non-zero if
any are violated.`,
		Args: cobra.ExactArgs(1),
		RunE: runCommandE,
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output JSON file for the report")
	cmd.Flags().StringVar(&junitPath, "junit", "", "Also write the report as JUnit XML to this path")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output with per-item progress")
	cmd.Flags().BoolVar(&interpret, "interpret", false, "Print a plain-language interpretation of the results")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Override the spec's concurrency cap")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "Override the spec's per-call timeout (seconds)")
	cmd.Flags().IntVar(&runs, "runs", 0, "Override the spec's runs per item")
	cmd.Flags().BoolVar(&noGate, "no-gate", false, "Skip threshold validation")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	specPath := args[0]
	spec, err := models.LoadExperimentSpec(specPath)
	if err != nil {
		return fmt.Errorf("loading experiment spec: %w", err)
	}

	// Flag overrides win over spec values
	if concurrency > 0 {
		spec.Concurrency = concurrency
	}
	if timeoutSec > 0 {
		spec.TimeoutSec = timeoutSec
	}
	if runs > 0 {
		spec.Runs = runs
	}

	datasetPath := spec.Dataset
	if !filepath.IsAbs(datasetPath) {
		datasetPath = filepath.Join(filepath.Dir(specPath), datasetPath)
	}

	items, err := dataset.Load(datasetPath)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("dataset %s has no items", datasetPath)
	}

	agent, err := execution.NewProgramAgent(spec.Agent)
	if err != nil {
		return err
	}

	hookRunner := &hooks.Runner{Verbose: verbose}
	if len(spec.Hooks.BeforeRun) > 0 {
		if err := hookRunner.Execute(cmd.Context(), "before_run", spec.Hooks.BeforeRun); err != nil {
			return fmt.Errorf("before_run hook failed: %w", err)
		}
	}
	defer func() {
		if len(spec.Hooks.AfterRun) > 0 {
			if err := hookRunner.Execute(cmd.Context(), "after_run", spec.Hooks.AfterRun); err != nil {
				fmt.Fprintf(os.Stderr, "[WARN] after_run hook error: %v\n", err)
			}
		}
	}()

	reporter := newProgressReporter(cmd.OutOrStdout(), verbose)
	registry := evaluators.NewRegistry()

	runner := orchestration.NewRunner(agent.Func(), registry,
		orchestration.WithName(spec.Name),
		orchestration.WithConcurrency(spec.Concurrency),
		orchestration.WithTimeout(time.Duration(spec.TimeoutSec)*time.Second),
		orchestration.WithRuns(spec.Runs),
		orchestration.WithEvaluators(spec.Evaluators...),
		orchestration.WithProgress(reporter.OnProgress),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Running %q: %d items × %d run(s), concurrency %d\n",
		spec.Name, len(items), spec.Runs, spec.Concurrency)

	report, err := runner.Run(cmd.Context(), items)
	if err != nil {
		return err
	}
	reporter.Finish()

	printSummary(cmd.OutOrStdout(), report)

	if interpret {
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprint(cmd.OutOrStdout(), reporting.FormatSummaryReport(report))
	}

	if outputPath != "" {
		if err := writeReport(outputPath, report); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", outputPath)
	}

	if junitPath != "" {
		if err := reporting.WriteJUnit(junitPath, report); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "JUnit XML written to %s\n", junitPath)
	}

	if noGate || len(spec.Thresholds) == 0 {
		return nil
	}

	result := gate.Validate(report, spec.Thresholds)
	printGateResult(cmd.OutOrStdout(), result)
	if !result.Passed {
		return &GateFailureError{Message: result.Summary}
	}
	return nil
}

func writeReport(path string, report *models.ExperimentReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
