package threshold

import (
	"fmt"
	"math"
	"sort"

	"github.com/uyouii/regression-algorithms/common"
	"gonum.org/v1/gonum/mat"
)

// design holds the observation set sorted ascending by the threshold
// variable, the intercept-augmented regressor matrix and the trimmed
// candidate grid. It is built once per test and read-only afterwards.
type design struct {
	n int
	k int

	x *mat.Dense    // n x k, first column is the intercept
	y *mat.VecDense // n
	q []float64     // n, sorted ascending

	// candidate grid: one entry per distinct q value kept after trimming.
	// cqq[r] is the count of observations with q <= thresholds[r].
	cqq        []int
	thresholds []float64
}

func newDesign(data *mat.Dense, yIndex int, xIndices []int, qIndex int, trim float64) (*design, error) {
	n, _ := data.Dims()
	k := len(xIndices) + 1

	// sort row order by the threshold variable, ties keep input order
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return data.At(order[a], qIndex) < data.At(order[b], qIndex)
	})

	d := &design{
		n: n,
		k: k,
		x: mat.NewDense(n, k, nil),
		y: mat.NewVecDense(n, nil),
		q: make([]float64, n),
	}
	for i, src := range order {
		d.x.Set(i, 0, 1)
		for j, col := range xIndices {
			d.x.Set(i, j+1, data.At(src, col))
		}
		d.y.SetVec(i, data.At(src, yIndex))
		d.q[i] = data.At(src, qIndex)
	}

	// distinct threshold values whose cumulative count falls inside the
	// trim bounds
	lo := int(math.Floor(float64(n) * trim))
	hi := int(math.Floor(float64(n) * (1 - trim)))
	for i := 0; i < n; i++ {
		if i+1 < n && d.q[i+1] == d.q[i] {
			continue
		}
		c := i + 1
		if c >= lo && c <= hi {
			d.cqq = append(d.cqq, c)
			d.thresholds = append(d.thresholds, d.q[i])
		}
	}
	if len(d.cqq) == 0 {
		return nil, fmt.Errorf("no candidate thresholds left after trimming at %v: %w",
			trim, common.ErrorDegenerateGrid)
	}

	return d, nil
}
