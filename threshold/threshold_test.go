package threshold

import (
	"context"
	"errors"
	"math"
	"os"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uyouii/regression-algorithms/common"
	"github.com/uyouii/regression-algorithms/model"
	"github.com/uyouii/regression-algorithms/utils"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

func TestMain(m *testing.M) {
	utils.SetLogger(zap.NewNop())
	os.Exit(m.Run())
}

func assertResultSane(t *testing.T, res *model.TestResult) {
	t.Helper()
	assert.GreaterOrEqual(t, res.PValue, 0.0)
	assert.LessOrEqual(t, res.PValue, 1.0)
	assert.Contains(t, res.Thresholds, res.ThresholdEstimate)
	assert.Equal(t, res.Thresholds[res.ThresholdIndex], res.ThresholdEstimate)
	assert.Len(t, res.Statistics, len(res.Thresholds))
	assert.Len(t, res.BootstrapStats, res.Replications)
	assert.True(t, sort.Float64sAreSorted(res.BootstrapStats))
}

func TestNewThresholdTestConfigErrors(t *testing.T) {
	data := genBreakData(30, 0.5, 0, 0, 1, 1)

	tests := []struct {
		name string
		run  func() (*ThresholdTest, error)
		want error
	}{
		{"nil data", func() (*ThresholdTest, error) {
			return NewThresholdTest(nil, 0, []int{1}, 2, nil)
		}, common.ErrorInvalidValue},
		{"y out of range", func() (*ThresholdTest, error) {
			return NewThresholdTest(data, 9, []int{1}, 2, nil)
		}, common.ErrorInvalidConfig},
		{"q equals y", func() (*ThresholdTest, error) {
			return NewThresholdTest(data, 0, []int{1}, 0, nil)
		}, common.ErrorInvalidConfig},
		{"q inside x", func() (*ThresholdTest, error) {
			return NewThresholdTest(data, 0, []int{1, 2}, 2, nil)
		}, common.ErrorInvalidConfig},
		{"duplicate x", func() (*ThresholdTest, error) {
			return NewThresholdTest(data, 0, []int{1, 1}, 2, nil)
		}, common.ErrorInvalidConfig},
		{"trim too large", func() (*ThresholdTest, error) {
			return NewThresholdTest(data, 0, []int{1}, 2, &model.TestOptions{TrimFraction: 0.5})
		}, common.ErrorInvalidConfig},
		{"trim negative", func() (*ThresholdTest, error) {
			return NewThresholdTest(data, 0, []int{1}, 2, &model.TestOptions{TrimFraction: -0.1})
		}, common.ErrorInvalidConfig},
		{"negative replications", func() (*ThresholdTest, error) {
			return NewThresholdTest(data, 0, []int{1}, 2, &model.TestOptions{Replications: -10})
		}, common.ErrorInvalidConfig},
		{"bad confidence level", func() (*ThresholdTest, error) {
			return NewThresholdTest(data, 0, []int{1}, 2, &model.TestOptions{ConfidenceLevel: 1.5})
		}, common.ErrorInvalidConfig},
		{"bad mode", func() (*ThresholdTest, error) {
			return NewThresholdTest(data, 0, []int{1}, 2, &model.TestOptions{Mode: model.ComputeMode(7)})
		}, common.ErrorInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.run()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestRunDeterministicWithSeed(t *testing.T) {
	data := genBreakData(120, 0.6, 1, 1, 1, 21)
	opts := &model.TestOptions{Replications: 200, Seed: 42}

	run := func() *model.TestResult {
		test, err := NewThresholdTest(data, 0, []int{1}, 2, opts)
		require.NoError(t, err)
		res, err := test.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	first, second := run(), run()
	assert.Equal(t, first.Statistic, second.Statistic)
	assert.Equal(t, first.ThresholdEstimate, second.ThresholdEstimate)
	assert.Equal(t, first.PValue, second.PValue)
	assert.Equal(t, first.BootstrapStats, second.BootstrapStats)
}

func TestRunWorkerCountInvariance(t *testing.T) {
	data := genBreakData(100, 0.5, 1, 0, 1, 13)

	run := func(workers int) *model.TestResult {
		test, err := NewThresholdTest(data, 0, []int{1}, 2,
			&model.TestOptions{Replications: 150, Seed: 9, Workers: workers})
		require.NoError(t, err)
		res, err := test.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	serial, parallel := run(1), run(4)
	assert.Equal(t, serial.BootstrapStats, parallel.BootstrapStats)
	assert.Equal(t, serial.PValue, parallel.PValue)
}

func TestRunReplicationsOnlyAffectPValue(t *testing.T) {
	data := genBreakData(100, 0.6, 1, 1, 1, 17)

	run := func(rep int) *model.TestResult {
		test, err := NewThresholdTest(data, 0, []int{1}, 2,
			&model.TestOptions{Replications: rep, Seed: 5})
		require.NoError(t, err)
		res, err := test.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	small, large := run(100), run(300)
	assert.Equal(t, small.Statistic, large.Statistic)
	assert.Equal(t, small.ThresholdEstimate, large.ThresholdEstimate)
	assert.Equal(t, small.Statistics, large.Statistics)
}

func TestRunPowerScenario(t *testing.T) {
	// strong break at the 60th percentile of a uniform threshold variable
	data := genBreakData(200, 0.6, 2, 2, 0.5, 1)

	test, err := NewThresholdTest(data, 0, []int{1}, 2,
		&model.TestOptions{TrimFraction: 0.15, Replications: 500, Seed: 1})
	require.NoError(t, err)
	res, err := test.Run(context.Background())
	require.NoError(t, err)

	assertResultSane(t, res)
	assert.Less(t, res.PValue, 0.05)
	assert.InDelta(t, 0.6, res.ThresholdEstimate, 0.1)
	assert.Greater(t, res.Statistic, res.CriticalValue)
}

func TestRunNullData(t *testing.T) {
	data := genBreakData(150, 0.5, 0, 0, 1, 29)

	res, err := RunThresholdTest(context.Background(), data, 0, []int{1}, 2,
		&model.TestOptions{Replications: 200, Seed: 8})
	require.NoError(t, err)

	assertResultSane(t, res)
	assert.Greater(t, res.Statistic, 0.0)
	assert.Zero(t, res.DegenerateCandidates)
}

func TestRunPerfectFitAllDegenerate(t *testing.T) {
	// y exactly linear in x: every residual is zero, every candidate
	// covariance is singular, the statistic degrades to zero with p = 1
	n := 40
	data := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		x := float64(i)
		data.Set(i, 0, 1+2*x)
		data.Set(i, 1, x)
		data.Set(i, 2, float64(i)/float64(n))
	}

	test, err := NewThresholdTest(data, 0, []int{1}, 2,
		&model.TestOptions{Replications: 50, Seed: 2})
	require.NoError(t, err)
	res, err := test.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Statistic)
	assert.Equal(t, 1.0, res.PValue)
	assert.Equal(t, len(res.Thresholds), res.DegenerateCandidates)
}

func TestRunPrecomputeMode(t *testing.T) {
	data := genBreakData(120, 0.6, 2, 2, 0.5, 4)

	run := func(mode model.ComputeMode) *model.TestResult {
		test, err := NewThresholdTest(data, 0, []int{1}, 2,
			&model.TestOptions{Replications: 200, Seed: 6, Mode: mode})
		require.NoError(t, err)
		res, err := test.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	recompute := run(model.ModeRecompute)
	precompute := run(model.ModePrecompute)

	// the observed pass is identical in both modes, only the bootstrap
	// reference distribution is built differently
	assert.Equal(t, recompute.Statistic, precompute.Statistic)
	assert.Equal(t, recompute.ThresholdEstimate, precompute.ThresholdEstimate)
	assert.Equal(t, recompute.Statistics, precompute.Statistics)
	assertResultSane(t, precompute)
}

func TestRunContextCanceled(t *testing.T) {
	data := genBreakData(80, 0.5, 0, 0, 1, 12)

	test, err := NewThresholdTest(data, 0, []int{1}, 2,
		&model.TestOptions{Replications: 100, Seed: 3})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = test.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunTrimBoundary(t *testing.T) {
	n := 12
	data := mat.NewDense(n, 3, nil)
	for i := 0; i < n; i++ {
		data.Set(i, 0, float64(i)+0.5*math.Sin(float64(i)))
		data.Set(i, 1, float64(i*i))
		data.Set(i, 2, float64(i))
	}

	// floor(12*0.45)=5 <= c <= floor(12*0.55)=6 keeps two candidates
	test, err := NewThresholdTest(data, 0, []int{1}, 2,
		&model.TestOptions{TrimFraction: 0.45, Replications: 50, Seed: 10})
	require.NoError(t, err)
	res, err := test.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6}, res.CandidateCounts)
	assertResultSane(t, res)
}
