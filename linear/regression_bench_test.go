package linear

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// benchDesign は処置ダミー1列と共変量 k-1 列のデザイン、正規誤差の応答を作る
func benchDesign(n, k int) (*mat.Dense, *mat.Dense) {
	src := rand.NewPCG(7, uint64(n*k))
	noise := distuv.Normal{Mu: 0, Sigma: 0.5, Src: src}
	rng := rand.New(src)

	X := mat.NewDense(n, k, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		yi := 2.0 + noise.Rand()
		if i%2 == 1 {
			X.Set(i, 0, 1)
			yi += 0.3
		}
		for j := 1; j < k; j++ {
			v := rng.NormFloat64()
			X.Set(i, j, v)
			yi += v / float64(j+1)
		}
		y.Set(i, 0, yi)
	}
	return X, y
}

func BenchmarkLinearRegressionFit(b *testing.B) {
	for _, sz := range [][2]int{{100, 5}, {1000, 10}, {10000, 20}, {20000, 50}} {
		X, y := benchDesign(sz[0], sz[1])
		b.Run(fmt.Sprintf("%dx%d", sz[0], sz[1]), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if err := NewLinearRegression().Fit(X, y); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// 並列化の閾値 1000 行の前後
func BenchmarkLinearRegressionPredict(b *testing.B) {
	for _, rows := range []int{900, 5000} {
		X, y := benchDesign(rows, 10)
		lr := NewLinearRegression()
		if err := lr.Fit(X, y); err != nil {
			b.Fatal(err)
		}
		b.Run(fmt.Sprintf("rows=%d", rows), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := lr.Predict(X); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
