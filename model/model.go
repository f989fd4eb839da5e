package model

import (
	"fmt"
	"math"

	"github.com/uyouii/regression-algorithms/common"
)

type ComputeMode int

const (
	// ModeRecompute rebuilds every covariance piece from each bootstrap
	// replication's own residuals. Slower, lower memory, the default.
	ModeRecompute ComputeMode = 0
	// ModePrecompute caches the per-candidate factorizations from the
	// observed-data pass and reuses them in every replication.
	ModePrecompute ComputeMode = 1
)

func (m ComputeMode) String() string {
	switch m {
	case ModeRecompute:
		return "recompute"
	case ModePrecompute:
		return "precompute"
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

func ParseComputeMode(s string) (ComputeMode, error) {
	switch s {
	case "recompute", "":
		return ModeRecompute, nil
	case "precompute":
		return ModePrecompute, nil
	}
	return 0, fmt.Errorf("compute mode %q: %w", s, common.ErrorInvalidValue)
}

// TestOptions configures a threshold test run. The zero value selects the
// defaults: trim 0.15, 1000 replications, recompute mode, time-based seed,
// one worker per cpu, 0.95 confidence level for the displayed critical value.
type TestOptions struct {
	TrimFraction    float64
	Replications    int
	Mode            ComputeMode
	Seed            uint64
	Workers         int
	ConfidenceLevel float64
}

// TestResult holds the outputs of a threshold test together with the
// parameters that produced them.
type TestResult struct {
	Statistic         float64
	PValue            float64
	ThresholdEstimate float64
	ThresholdIndex    int

	// Statistics[r] is the robust LM statistic at candidate r,
	// Thresholds[r] the candidate's threshold value and
	// CandidateCounts[r] the count of observations at or below it.
	Statistics      []float64
	Thresholds      []float64
	CandidateCounts []int

	// BootstrapStats is the sorted empirical null distribution of the
	// maximal statistic.
	BootstrapStats []float64
	CriticalValue  float64

	DegenerateCandidates int

	Observations    int
	Regressors      int
	TrimFraction    float64
	Replications    int
	Mode            ComputeMode
	Seed            uint64
	ConfidenceLevel float64
}

// CriticalValueAt returns the bootstrap critical value at the given
// confidence level: the replication set's value at rank ceil(rep*level),
// clamped to the set bounds.
func (r *TestResult) CriticalValueAt(level float64) (float64, error) {
	if level <= 0 || level >= 1 {
		return 0, fmt.Errorf("confidence level %v: %w", level, common.ErrorInvalidConfig)
	}
	if len(r.BootstrapStats) == 0 {
		return 0, common.ErrorInvalidValue
	}
	rank := int(math.Ceil(float64(len(r.BootstrapStats)) * level))
	if rank < 1 {
		rank = 1
	}
	if rank > len(r.BootstrapStats) {
		rank = len(r.BootstrapStats)
	}
	return r.BootstrapStats[rank-1], nil
}

func (r *TestResult) DebugString() string {
	return fmt.Sprintf("stat: %v, pvalue: %v, threshold: %v, candidateCount: %v, degenerateCount: %v",
		r.Statistic, r.PValue, r.ThresholdEstimate, len(r.Thresholds), r.DegenerateCandidates)
}
