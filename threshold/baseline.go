package threshold

import (
	"fmt"

	"github.com/uyouii/regression-algorithms/common"
	"gonum.org/v1/gonum/mat"
)

// baseline is the full-sample OLS fit and the covariance building blocks
// shared by every candidate threshold: the factorized cross product x'x,
// its inverse and the White outer-product sum of the score rows.
type baseline struct {
	des *design

	chol  mat.Cholesky
	beta  *mat.VecDense
	resid []float64

	xe       *mat.Dense    // n x k, row i is x_i * e_i
	sigmaInv *mat.SymDense // (x'x)^-1
	white    *mat.SymDense // sum of (x_i e_i)(x_i e_i)'
}

func newBaseline(des *design) (*baseline, error) {
	b := &baseline{des: des}

	var xtx mat.SymDense
	xtx.SymOuterK(1, des.x.T())
	if !b.chol.Factorize(&xtx) {
		return nil, fmt.Errorf("regressor cross product not positive definite: %w",
			common.ErrorSingularDesign)
	}

	var xty mat.VecDense
	xty.MulVec(des.x.T(), des.y)
	b.beta = mat.NewVecDense(des.k, nil)
	if err := b.chol.SolveVecTo(b.beta, &xty); err != nil {
		return nil, fmt.Errorf("solve normal equations: %w", common.ErrorSingularDesign)
	}

	var fit mat.VecDense
	fit.MulVec(des.x, b.beta)
	b.resid = make([]float64, des.n)
	b.xe = mat.NewDense(des.n, des.k, nil)
	for i := 0; i < des.n; i++ {
		e := des.y.AtVec(i) - fit.AtVec(i)
		b.resid[i] = e
		for j := 0; j < des.k; j++ {
			b.xe.Set(i, j, des.x.At(i, j)*e)
		}
	}

	b.sigmaInv = mat.NewSymDense(des.k, nil)
	if err := b.chol.InverseTo(b.sigmaInv); err != nil {
		return nil, fmt.Errorf("invert regressor cross product: %w", common.ErrorSingularDesign)
	}
	b.white = mat.NewSymDense(des.k, nil)
	b.white.SymOuterK(1, b.xe.T())

	return b, nil
}

// scores refits the regression for a replacement dependent vector through
// the retained factorization (the regressors are fixed) and writes the
// score rows x_i * e_i into dst. Safe for concurrent use.
func (b *baseline) scores(y *mat.VecDense, dst *mat.Dense) error {
	var xty mat.VecDense
	xty.MulVec(b.des.x.T(), y)
	var beta mat.VecDense
	if err := b.chol.SolveVecTo(&beta, &xty); err != nil {
		return fmt.Errorf("refit: %w", common.ErrorSingularDesign)
	}
	var fit mat.VecDense
	fit.MulVec(b.des.x, &beta)
	for i := 0; i < b.des.n; i++ {
		e := y.AtVec(i) - fit.AtVec(i)
		for j := 0; j < b.des.k; j++ {
			dst.Set(i, j, b.des.x.At(i, j)*e)
		}
	}
	return nil
}
