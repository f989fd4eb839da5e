// Package report formats threshold test results for display. Plot drawing
// itself stays outside: BuildPlotData hands any plotting frontend the
// statistic sequence, the candidate grid and the critical-value line.
package report

import (
	"fmt"
	"strings"

	"github.com/uyouii/regression-algorithms/model"
	"github.com/uyouii/regression-algorithms/utils"
	"gonum.org/v1/gonum/stat"
)

// Render produces the human readable text block for a finished test.
func Render(res *model.TestResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Threshold Regression Test (wild bootstrap, heteroskedasticity robust)\n")
	fmt.Fprintf(&b, "---------------------------------------------------------------------\n")
	fmt.Fprintf(&b, "observations:          %v\n", res.Observations)
	fmt.Fprintf(&b, "regressors:            %v (incl. intercept)\n", res.Regressors)
	fmt.Fprintf(&b, "trim fraction:         %v\n", res.TrimFraction)
	fmt.Fprintf(&b, "candidate thresholds:  %v  [%v, %v]\n", len(res.Thresholds),
		utils.FormatFloat(res.Thresholds[0], 4),
		utils.FormatFloat(res.Thresholds[len(res.Thresholds)-1], 4))
	fmt.Fprintf(&b, "replications:          %v (mode %v, seed %v)\n",
		res.Replications, res.Mode, res.Seed)
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "test statistic:        %v\n", utils.FormatFloat(res.Statistic, 4))
	fmt.Fprintf(&b, "bootstrap p-value:     %v\n", utils.FormatFloat(res.PValue, 4))
	fmt.Fprintf(&b, "threshold estimate:    %v\n", utils.FormatFloat(res.ThresholdEstimate, 4))
	fmt.Fprintf(&b, "critical value (%v%%):  %v\n", utils.FormatFloat(res.ConfidenceLevel*100, 2),
		utils.FormatFloat(res.CriticalValue, 4))
	fmt.Fprintf(&b, "mean grid statistic:   %v\n",
		utils.FormatFloat(stat.Mean(res.Statistics, nil), 4))
	if res.DegenerateCandidates > 0 {
		fmt.Fprintf(&b, "degenerate candidates: %v (statistic left at zero)\n",
			res.DegenerateCandidates)
	}

	return b.String()
}

// BuildPlotData assembles the diagnostic plot input at the given confidence
// level.
func BuildPlotData(res *model.TestResult, level float64) (*model.PlotData, error) {
	crit, err := res.CriticalValueAt(level)
	if err != nil {
		return nil, err
	}
	return &model.PlotData{
		Thresholds:    res.Thresholds,
		Statistics:    res.Statistics,
		CriticalValue: crit,
		Level:         level,
	}, nil
}
