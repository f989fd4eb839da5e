package threshold

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/uyouii/regression-algorithms/common"
	"github.com/uyouii/regression-algorithms/model"
	"github.com/uyouii/regression-algorithms/utils"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// ThresholdTest tests for an unknown structural threshold in a linear
// regression y = x'b1 + x'b2*1{q>g}: the null of no threshold (b1 = b2)
// against the alternative that some threshold g exists. The statistic is a
// heteroskedasticity-robust sup-LM over a trimmed grid of candidate
// thresholds; the p-value comes from a wild bootstrap with fixed regressors.
type ThresholdTest struct {
	data     *mat.Dense
	yIndex   int
	xIndices []int
	qIndex   int
	opts     model.TestOptions
}

// NewThresholdTest validates the column selection and options. xIndices
// must not contain an intercept column, the engine prepends one; a constant
// regressor surfaces later as a singular design. Zero-valued options take
// the package defaults.
func NewThresholdTest(data *mat.Dense, yIndex int, xIndices []int, qIndex int,
	opts *model.TestOptions) (*ThresholdTest, error) {
	if data == nil {
		return nil, fmt.Errorf("data matrix is nil: %w", common.ErrorInvalidValue)
	}
	n, cols := data.Dims()
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 observations, got %v: %w", n, common.ErrorInvalidValue)
	}

	seen := map[int]bool{}
	for _, idx := range append([]int{yIndex, qIndex}, xIndices...) {
		if idx < 0 || idx >= cols {
			return nil, fmt.Errorf("column index %v out of range [0,%v): %w",
				idx, cols, common.ErrorInvalidConfig)
		}
		if seen[idx] {
			return nil, fmt.Errorf("column index %v selected more than once: %w",
				idx, common.ErrorInvalidConfig)
		}
		seen[idx] = true
	}

	t := &ThresholdTest{
		data:     data,
		yIndex:   yIndex,
		xIndices: xIndices,
		qIndex:   qIndex,
	}
	if opts != nil {
		t.opts = *opts
	}
	if t.opts.TrimFraction == 0 {
		t.opts.TrimFraction = DefaultTrimFraction
	}
	if t.opts.TrimFraction <= 0 || t.opts.TrimFraction >= 0.5 {
		return nil, fmt.Errorf("trim fraction %v not in (0, 0.5): %w",
			t.opts.TrimFraction, common.ErrorInvalidConfig)
	}
	if t.opts.Replications == 0 {
		t.opts.Replications = DefaultReplications
	}
	if t.opts.Replications < 1 {
		return nil, fmt.Errorf("replications %v must be positive: %w",
			t.opts.Replications, common.ErrorInvalidConfig)
	}
	if t.opts.ConfidenceLevel == 0 {
		t.opts.ConfidenceLevel = DefaultConfidenceLevel
	}
	if t.opts.ConfidenceLevel <= 0 || t.opts.ConfidenceLevel >= 1 {
		return nil, fmt.Errorf("confidence level %v not in (0, 1): %w",
			t.opts.ConfidenceLevel, common.ErrorInvalidConfig)
	}
	if t.opts.Mode != model.ModeRecompute && t.opts.Mode != model.ModePrecompute {
		return nil, fmt.Errorf("compute mode %v: %w", t.opts.Mode, common.ErrorInvalidConfig)
	}
	if t.opts.Workers <= 0 {
		t.opts.Workers = runtime.NumCPU()
	}

	return t, nil
}

// RunThresholdTest constructs and runs a test in one call.
func RunThresholdTest(ctx context.Context, data *mat.Dense, yIndex int, xIndices []int,
	qIndex int, opts *model.TestOptions) (*model.TestResult, error) {
	test, err := NewThresholdTest(data, yIndex, xIndices, qIndex, opts)
	if err != nil {
		return nil, err
	}
	return test.Run(ctx)
}

// Run executes the full test: the observed statistic sequence over the
// candidate grid, its maximum and the bootstrap p-value.
func (t *ThresholdTest) Run(ctx context.Context) (res *model.TestResult, err error) {
	logger := utils.GetLogger(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("threshold test recover panic error!", zap.Any("err", r),
				zap.String("panic info", utils.GetPanicInfo()))
			res, err = nil, fmt.Errorf("threshold test panic: %v", r)
		}
	}()

	// 1. sort by the threshold variable and build the trimmed grid
	des, err := newDesign(t.data, t.yIndex, t.xIndices, t.qIndex, t.opts.TrimFraction)
	if err != nil {
		logger.Error("build design failed", zap.Error(err))
		return nil, err
	}

	// 2. full sample baseline fit
	base, err := newBaseline(des)
	if err != nil {
		logger.Error("baseline estimation failed", zap.Error(err))
		return nil, err
	}

	// 3. observed statistic sequence
	eng := &statisticEngine{des: des, base: base}
	var arena *factorArena
	if t.opts.Mode == model.ModePrecompute {
		arena = newFactorArena(len(des.cqq))
	}
	observed := eng.sweep(base.xe, base.white, arena)
	if observed.degenerate > 0 {
		logger.Warn("singular covariance at some candidate thresholds",
			zap.Int("degenerateCount", observed.degenerate),
			zap.Int("candidateCount", len(des.cqq)))
	}

	// 4. wild bootstrap null distribution
	seed := t.opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	bootStats, err := eng.bootstrap(ctx, bootstrapConfig{
		replications: t.opts.Replications,
		workers:      t.opts.Workers,
		seed:         seed,
		mode:         t.opts.Mode,
	}, arena)
	if err != nil {
		logger.Error("bootstrap failed", zap.Error(err))
		return nil, err
	}

	// 5. p-value and displayed critical value
	res = &model.TestResult{
		Statistic:            observed.maxStat,
		PValue:               upperTailFraction(bootStats, observed.maxStat),
		ThresholdEstimate:    des.thresholds[observed.maxIndex],
		ThresholdIndex:       observed.maxIndex,
		Statistics:           observed.stats,
		Thresholds:           des.thresholds,
		CandidateCounts:      des.cqq,
		BootstrapStats:       bootStats,
		DegenerateCandidates: observed.degenerate,
		Observations:         des.n,
		Regressors:           des.k,
		TrimFraction:         t.opts.TrimFraction,
		Replications:         t.opts.Replications,
		Mode:                 t.opts.Mode,
		Seed:                 seed,
		ConfidenceLevel:      t.opts.ConfidenceLevel,
	}
	res.CriticalValue, _ = res.CriticalValueAt(t.opts.ConfidenceLevel)

	logger.Info("threshold test done",
		zap.Float64("statistic", res.Statistic),
		zap.Float64("pvalue", res.PValue),
		zap.Float64("threshold", res.ThresholdEstimate),
		zap.Int("candidates", len(res.Thresholds)),
		zap.Int("replications", res.Replications))

	return res, nil
}
