package threshold

import (
	"gonum.org/v1/gonum/mat"
)

// statisticEngine walks the candidate grid once, maintaining the running
// accumulators mm, vv and the cumulative score, and evaluates the robust
// quadratic-form statistic at every candidate threshold.
type statisticEngine struct {
	des  *design
	base *baseline
}

type sweepResult struct {
	stats      []float64
	maxStat    float64
	maxIndex   int
	degenerate int
}

// factorArena stores one factorization per candidate from the observed-data
// pass so bootstrap replications can skip rebuilding them. A nil entry marks
// a degenerate candidate. Owned by a single test invocation.
type factorArena struct {
	factors []*mat.Cholesky
}

func newFactorArena(candidates int) *factorArena {
	return &factorArena{factors: make([]*mat.Cholesky, candidates)}
}

// sweep computes the statistic sequence for one set of score rows xe with
// the White sum of those rows. Accumulators grow monotonically in candidate
// order: each candidate folds in only the newly covered rows. When arena is
// non-nil every candidate's factorization is stored into it.
func (s *statisticEngine) sweep(xe *mat.Dense, white *mat.SymDense, arena *factorArena) *sweepResult {
	des, k := s.des, s.des.k
	sigmaInv := s.base.sigmaInv

	res := &sweepResult{
		stats:    make([]float64, len(des.cqq)),
		maxIndex: -1,
	}

	mm := mat.NewSymDense(k, nil)
	vv := mat.NewSymDense(k, nil)
	cxe := mat.NewVecDense(k, nil)

	var ms, t1, t3a, t3 mat.Dense
	var sol mat.VecDense
	row := 0

	for r, c := range des.cqq {
		for ; row < c; row++ {
			mm.SymRankOne(mm, 1, des.x.RowView(row))
			vv.SymRankOne(vv, 1, xe.RowView(row))
			cxe.AddVec(cxe, xe.RowView(row))
		}

		// M(r) = vv - mm*S*vv - vv*S*mm + mm*S*V*S*mm with S = (x'x)^-1
		// and V the global White sum; the second and third terms are
		// transposes of each other.
		ms.Mul(mm, sigmaInv)
		t1.Mul(&ms, vv)
		t3a.Mul(&ms, white)
		t3.Mul(&t3a, ms.T())

		m := mat.NewSymDense(k, nil)
		for i := 0; i < k; i++ {
			for j := i; j < k; j++ {
				v := vv.At(i, j) - t1.At(i, j) - t1.At(j, i) +
					(t3.At(i, j)+t3.At(j, i))/2
				m.SetSym(i, j, v)
			}
		}

		chol := &mat.Cholesky{}
		if !chol.Factorize(m) {
			// singular candidate covariance: statistic stays zero and
			// the candidate never wins the maximum search
			res.degenerate++
			continue
		}
		if arena != nil {
			arena.factors[r] = chol
		}
		if err := chol.SolveVecTo(&sol, cxe); err != nil {
			res.degenerate++
			continue
		}
		stat := mat.Dot(cxe, &sol)
		res.stats[r] = stat
		if res.maxIndex < 0 || stat > res.maxStat {
			res.maxStat = stat
			res.maxIndex = r
		}
	}

	if res.maxIndex < 0 {
		res.maxIndex = 0
		res.maxStat = 0
	}
	return res
}

// sweepCached reruns the walk reusing the factorizations stored by the
// observed-data pass: only the cumulative score changes per candidate.
func (s *statisticEngine) sweepCached(xe *mat.Dense, arena *factorArena) *sweepResult {
	des := s.des

	res := &sweepResult{
		stats:    make([]float64, len(des.cqq)),
		maxIndex: -1,
	}

	cxe := mat.NewVecDense(des.k, nil)
	var sol mat.VecDense
	row := 0

	for r, c := range des.cqq {
		for ; row < c; row++ {
			cxe.AddVec(cxe, xe.RowView(row))
		}
		chol := arena.factors[r]
		if chol == nil {
			res.degenerate++
			continue
		}
		if err := chol.SolveVecTo(&sol, cxe); err != nil {
			res.degenerate++
			continue
		}
		stat := mat.Dot(cxe, &sol)
		res.stats[r] = stat
		if res.maxIndex < 0 || stat > res.maxStat {
			res.maxStat = stat
			res.maxIndex = r
		}
	}

	if res.maxIndex < 0 {
		res.maxIndex = 0
		res.maxStat = 0
	}
	return res
}
