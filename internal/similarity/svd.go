package similarity

import (
	"errors"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"
)

const oversamples = 10

// TruncatedSVD reduces a matrix to its leading components with the
// randomized range finder of Halko, Martinsson and Tropp.
type TruncatedSVD struct {
	Components int
	Seed       uint64
}

// FitTransform returns U·Σ for the leading components of x. The number of
// components is clamped to the matrix dimensions.
func (t TruncatedSVD) FitTransform(x *mat.Dense) (*mat.Dense, error) {
	m, n := x.Dims()
	k := min(t.Components, m, n)
	if k < 1 {
		return nil, errors.New("truncated svd needs at least one component")
	}
	l := min(k+oversamples, m, n)

	iterations := 4
	if float64(k) < 0.1*float64(min(m, n)) {
		iterations = 7
	}

	rng := rand.New(rand.NewPCG(t.Seed, t.Seed))
	omega := mat.NewDense(n, l, nil)
	for i := range n {
		for j := range l {
			omega.Set(i, j, rng.NormFloat64())
		}
	}

	var y mat.Dense
	y.Mul(x, omega)
	q := orthonormalize(&y)

	for range iterations {
		var z mat.Dense
		z.Mul(x.T(), q)
		qz := orthonormalize(&z)
		y.Reset()
		y.Mul(x, qz)
		q = orthonormalize(&y)
	}

	// project onto the range and take the exact SVD of the small matrix
	var b mat.Dense
	b.Mul(q.T(), x)

	var svd mat.SVD
	if !svd.Factorize(&b, mat.SVDThin) {
		return nil, errors.New("svd factorization failed")
	}
	var ub mat.Dense
	svd.UTo(&ub)
	sigma := svd.Values(nil)

	var u mat.Dense
	u.Mul(q, &ub)

	out := mat.NewDense(m, k, nil)
	for j := range k {
		col := mat.Col(nil, j, &u)
		flipSign(col)
		for i := range m {
			out.Set(i, j, col[i]*sigma[j])
		}
	}
	return out, nil
}

// orthonormalize returns the thin Q factor of a: an m×n matrix with
// orthonormal columns spanning the columns of a. a must have m >= n. The
// full m×m Q is never formed.
func orthonormalize(a *mat.Dense) *mat.Dense {
	q := mat.DenseCopyOf(a)
	raw := q.RawMatrix()
	tau := make([]float64, min(raw.Rows, raw.Cols))

	work := make([]float64, 1)
	lapack64.Geqrf(raw, tau, work, -1)
	work = make([]float64, max(1, int(work[0])))
	lapack64.Geqrf(raw, tau, work, len(work))

	lapack64.Orgqr(raw, tau, work, -1)
	if need := int(work[0]); need > len(work) {
		work = make([]float64, need)
	}
	lapack64.Orgqr(raw, tau, work, len(work))
	return q
}

// flipSign makes the entry with the largest magnitude positive so results do
// not depend on the sign the factorization happened to pick.
func flipSign(col []float64) {
	best := 0
	for i, v := range col {
		if math.Abs(v) > math.Abs(col[best]) {
			best = i
		}
	}
	if col[best] < 0 {
		for i := range col {
			col[i] = -col[i]
		}
	}
}
