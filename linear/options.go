package linear

// Option は LinearRegression を設定する関数
type Option func(*LinearRegression)

// WithFitIntercept は切片を推定するかどうかを設定する（既定は true）。
// デザイン行列が既に切片列を含む場合は false にする
func WithFitIntercept(fit bool) Option {
	return func(lr *LinearRegression) {
		lr.fitIntercept = fit
	}
}
