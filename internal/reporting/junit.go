// Package reporting serializes evaluation results for humans (JSON) and
// for CI (JUnit XML, one testsuite per scenario, one testcase per fold)
// so scenario regressions can gate a pipeline.
package reporting

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/librexlabs/librex/internal/evaluation"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one evaluated scenario.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one cross-validation fold.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
}

// JUnitFailure marks a fold whose mean regret exceeded the threshold.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts an evaluation result to JUnit XML. A fold
// fails when its mean regret exceeds regretThreshold; a threshold of 0
// disables failure marking.
func ConvertToJUnit(res *evaluation.Result, regretThreshold float64) *JUnitTestSuites {
	durationSec := float64(res.DurationMs) / 1000.0

	suite := JUnitTestSuite{
		Name:      res.Scenario,
		Tests:     len(res.Folds),
		Time:      durationSec,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "policy", Value: res.Policy},
			{Name: "mean_regret", Value: fmt.Sprintf("%.4f", res.MeanRegret)},
			{Name: "topk_accuracy", Value: fmt.Sprintf("%.4f", res.TopKAccuracy)},
			{Name: "top1_accuracy", Value: fmt.Sprintf("%.4f", res.Top1Accuracy)},
			{Name: "solved_rate", Value: fmt.Sprintf("%.4f", res.SolvedRate)},
		},
	}

	for _, fold := range res.Folds {
		tc := JUnitTestCase{
			Name:      fmt.Sprintf("fold-%d", fold.Fold),
			Classname: fmt.Sprintf("%s.%s", res.Scenario, res.Policy),
			Time:      durationSec / float64(max(len(res.Folds), 1)),
		}
		if regretThreshold > 0 && fold.MeanRegret > regretThreshold {
			tc.Failure = &JUnitFailure{
				Message: fmt.Sprintf("mean regret %.4f exceeds threshold %.4f", fold.MeanRegret, regretThreshold),
				Type:    "RegretThreshold",
			}
			suite.Failures++
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

// WriteJUnit writes JUnit XML for the result to path.
func WriteJUnit(res *evaluation.Result, regretThreshold float64, path string) error {
	suites := ConvertToJUnit(res, regretThreshold)
	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("reporting: marshal junit: %w", err)
	}
	data = append([]byte(xml.Header), data...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("reporting: write %s: %w", path, err)
	}
	return nil
}

// WriteJSON writes the full evaluation result, folds included, to path.
func WriteJSON(res *evaluation.Result, path string) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("reporting: marshal json: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("reporting: write %s: %w", path, err)
	}
	return nil
}
