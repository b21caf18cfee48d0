package numeric

import "gonum.org/v1/gonum/mat"

// Rank returns the numerical rank of a: the number of singular values
// greater than tol times the largest one. The singular values are returned
// in descending order.
func Rank(a mat.Matrix, tol float64) (int, []float64, error) {
	r, c := a.Dims()
	if r == 0 || c == 0 {
		return 0, nil, Invalidf("rank of empty %dx%d matrix", r, c)
	}
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDNone); !ok {
		return 0, nil, Degeneratef("singular value decomposition failed")
	}
	values := svd.Values(nil)
	if values[0] == 0 {
		return 0, values, nil
	}
	cut := tol * values[0]
	rank := 0
	for _, v := range values {
		if v > cut {
			rank++
		}
	}
	return rank, values, nil
}
