package model

// EstimatorState はモデルの学習状態を表す
type EstimatorState int

const (
	// NotFitted はモデルが未学習の状態
	NotFitted EstimatorState = iota
	// Fitted はモデルが学習済みの状態
	Fitted
)

// BaseEstimator は全ての平滑化推定量の基底となる構造体。
// 学習状態に加えて訓練標本の形状を保持し、予測時の次元検証と
// 構造化ログの共通情報源として使う。
type BaseEstimator struct {
	state     EstimatorState
	nSamples  int
	nFeatures int
}

// IsFitted はモデルが学習済みかどうかを返す
func (e *BaseEstimator) IsFitted() bool {
	return e.state == Fitted
}

// SetFitted はモデルを学習済み状態に設定し、訓練標本の形状を記録する
func (e *BaseEstimator) SetFitted(nSamples, nFeatures int) {
	e.state = Fitted
	e.nSamples = nSamples
	e.nFeatures = nFeatures
}

// NSamples は学習に使われた標本数を返す（未学習なら0）
func (e *BaseEstimator) NSamples() int {
	return e.nSamples
}

// NFeatures は学習に使われた入力次元数を返す（未学習なら0）
func (e *BaseEstimator) NFeatures() int {
	return e.nFeatures
}

// Reset はモデルを初期状態にリセットする
func (e *BaseEstimator) Reset() {
	e.state = NotFitted
	e.nSamples = 0
	e.nFeatures = 0
}
