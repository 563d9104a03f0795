// Package reporting converts experiment reports into consumer-facing
// formats: JUnit XML for CI systems and plain-language interpretation for
// humans.
package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spboyer/gauntlet/internal/models"
)

// passingScore is the per-evaluator score at or above which an item counts
// as passing for JUnit purposes, mirroring the gate's default min_score.
const passingScore = 0.5

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one experiment run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one dataset item.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
}

// JUnitFailure represents an item whose evaluations fell below passing.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents an agent failure (error or timeout).
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts an ExperimentReport to JUnit XML structures. An
// item whose agent call failed becomes an <error>; an item with any
// evaluator score below 0.5 becomes a <failure>.
func ConvertToJUnit(report *models.ExperimentReport) *JUnitTestSuites {
	durationSec := float64(report.Summary.TotalDurationMs) / 1000.0

	suiteName := report.Name
	if suiteName == "" {
		suiteName = "experiment"
	}

	suite := JUnitTestSuite{
		Name:      suiteName,
		Tests:     len(report.Items),
		Time:      durationSec,
		Timestamp: report.StartedAt.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "runs_per_item", Value: fmt.Sprintf("%d", report.Summary.RunsPerItem)},
			{Name: "avg_latency_ms", Value: fmt.Sprintf("%d", report.Summary.AvgLatencyMs)},
		},
	}

	for i := range report.Items {
		tc := convertItem(suiteName, &report.Items[i])
		if tc.Error != nil {
			suite.Errors++
		} else if tc.Failure != nil {
			suite.Failures++
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Errors:     suite.Errors,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func convertItem(suiteName string, item *models.ItemResult) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      fmt.Sprintf("item-%d", item.Index),
		Classname: suiteName,
		Time:      float64(item.LatencyMs) / 1000.0,
	}

	if item.Error != "" {
		tc.Error = &JUnitError{
			Message: item.Error,
			Type:    "AgentExecutionError",
		}
		return tc
	}

	var failing []string
	names := make([]string, 0, len(item.Evaluations))
	for name := range item.Evaluations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ev := item.Evaluations[name]
		if ev.Score < passingScore {
			failing = append(failing, fmt.Sprintf("%s: score %.2f (%s)", name, ev.Score, ev.Reason))
		}
	}

	if len(failing) > 0 {
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%d evaluator(s) below passing score", len(failing)),
			Type:    "EvaluationFailure",
			Body:    strings.Join(failing, "\n"),
		}
	}

	return tc
}

// WriteJUnit writes the report as JUnit XML to the given path.
func WriteJUnit(path string, report *models.ExperimentReport) error {
	suites := ConvertToJUnit(report)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JUnit XML: %w", err)
	}

	out := append([]byte(xml.Header), data...)
	out = append(out, '\n')
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing JUnit XML: %w", err)
	}
	return nil
}
