package threshold

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sort"

	"github.com/uyouii/regression-algorithms/model"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

type bootstrapConfig struct {
	replications int
	workers      int
	seed         uint64
	mode         model.ComputeMode
}

// bootstrap builds the empirical null distribution of the maximal statistic
// with a wild bootstrap holding the regressors fixed: each replication draws
// y* = z .* e with z standard normal, refits through the retained baseline
// factorization and reruns the candidate walk. Replications are independent,
// each owns a rng stream pre-seeded from the master seed, so results are
// identical for any worker count. Returns the replication set sorted
// ascending.
func (s *statisticEngine) bootstrap(ctx context.Context, cfg bootstrapConfig, arena *factorArena) ([]float64, error) {
	n, k := s.des.n, s.des.k

	master := rand.New(rand.NewPCG(cfg.seed, cfg.seed))
	seeds := make([][2]uint64, cfg.replications)
	for i := range seeds {
		seeds[i] = [2]uint64{master.Uint64(), master.Uint64()}
	}

	workers := cfg.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > cfg.replications {
		workers = cfg.replications
	}

	stats := make([]float64, cfg.replications)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for b := 0; b < cfg.replications; b++ {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(seeds[b][0], seeds[b][1])}
			ystar := mat.NewVecDense(n, nil)
			for i := 0; i < n; i++ {
				ystar.SetVec(i, normal.Rand()*s.base.resid[i])
			}

			xestar := mat.NewDense(n, k, nil)
			if err := s.base.scores(ystar, xestar); err != nil {
				return err
			}

			var res *sweepResult
			if cfg.mode == model.ModePrecompute {
				res = s.sweepCached(xestar, arena)
			} else {
				var whitestar mat.SymDense
				whitestar.SymOuterK(1, xestar.T())
				res = s.sweep(xestar, &whitestar, nil)
			}
			stats[b] = res.maxStat
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Float64s(stats)
	return stats, nil
}
