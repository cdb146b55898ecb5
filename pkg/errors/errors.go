// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// ノンパラメトリック回帰で発生する数値的な失敗（データ不足、特異な局所計画行列、
// 分散の退化、カーネルサポート外のクエリ点）を構造化されたエラー・警告として表現します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("npreg-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
// OutOfSupportWarningなどの回復可能な警告の処理方法を制御できます。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが利用可能な場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	// zerologが設定されている場合は優先的に使用
	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	// フォールバック: 従来のハンドラ
	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	回復可能な警告型
//
// ===========================================================================

// OutOfSupportWarning はクエリ点がカーネルサポートの外にあり、
// 重みの総和がゼロになった場合に発生する警告です。
// 予測は応答の全体平均にフォールバックしますが、黙って飲み込まず必ず報告されます。
type OutOfSupportWarning struct {
	Estimator string
	Query     []float64
	Fallback  float64
}

func (w *OutOfSupportWarning) Error() string {
	return fmt.Sprintf("%s: query point %v has zero total kernel weight; falling back to global mean %.6g",
		w.Estimator, w.Query, w.Fallback)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *OutOfSupportWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("estimator", w.Estimator).
		Floats64("query", w.Query).
		Float64("fallback", w.Fallback).
		Str("type", "OutOfSupportWarning")
}

// NewOutOfSupportWarning は新しいOutOfSupportWarningを作成します。
func NewOutOfSupportWarning(estimator string, query []float64, fallback float64) *OutOfSupportWarning {
	q := make([]float64, len(query))
	copy(q, query)
	return &OutOfSupportWarning{Estimator: estimator, Query: q, Fallback: fallback}
}

// OrderFallbackWarning は局所多項式フィットの重み付き計画行列が階数不足となり、
// より低い次数へ決定論的にフォールバックした場合に発生する警告です。
type OrderFallbackWarning struct {
	Estimator      string
	RequestedOrder int
	UsedOrder      int
	Query          []float64
}

func (w *OrderFallbackWarning) Error() string {
	return fmt.Sprintf("%s: rank-deficient local design at %v; fell back from order %d to order %d",
		w.Estimator, w.Query, w.RequestedOrder, w.UsedOrder)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *OrderFallbackWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("estimator", w.Estimator).
		Int("requested_order", w.RequestedOrder).
		Int("used_order", w.UsedOrder).
		Floats64("query", w.Query).
		Str("type", "OrderFallbackWarning")
}

// NewOrderFallbackWarning は新しいOrderFallbackWarningを作成します。
func NewOrderFallbackWarning(estimator string, requested, used int, query []float64) *OrderFallbackWarning {
	q := make([]float64, len(query))
	copy(q, query)
	return &OrderFallbackWarning{Estimator: estimator, RequestedOrder: requested, UsedOrder: used, Query: q}
}

// ConvergenceWarning は反復的な最適化（座標降下によるバンド幅選択など）が
// 反復上限までに収束しなかった場合に発生する警告です。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or loosening the tolerance.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` などを呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("npreg: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// InsufficientDataError は要求された次元・多項式次数に対して標本数が
// 少なすぎる場合のエラーです。致命的であり、呼び出し元に返されリトライされません。
type InsufficientDataError struct {
	Op       string
	Required int
	Got      int
	Reason   string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("npreg: %s: insufficient data: need at least %d samples, got %d (%s)",
		e.Op, e.Required, e.Got, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *InsufficientDataError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("required", e.Required).
		Int("got", e.Got).
		Str("reason", e.Reason).
		Str("type", "InsufficientDataError")
}

// NewInsufficientDataError は新しいInsufficientDataErrorを作成し、スタックトレースを付与します。
func NewInsufficientDataError(op string, required, got int, reason string) error {
	err := &InsufficientDataError{Op: op, Required: required, Got: got, Reason: reason}
	return errors.WithStack(err)
}

// SingularFitError は重み付き局所計画行列が次数フォールバック後も
// 解けなかった場合のエラーです。
type SingularFitError struct {
	Op    string
	Query []float64
}

func (e *SingularFitError) Error() string {
	return fmt.Sprintf("npreg: %s: weighted design matrix is singular at query %v even after order fallback", e.Op, e.Query)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SingularFitError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Floats64("query", e.Query).
		Str("type", "SingularFitError")
}

// NewSingularFitError は新しいSingularFitErrorを作成し、スタックトレースを付与します。
func NewSingularFitError(op string, query []float64) error {
	q := make([]float64, len(query))
	copy(q, query)
	err := &SingularFitError{Op: op, Query: q}
	return errors.WithStack(err)
}

// DegenerateVarianceError は応答（または説明変数の次元）の分散がゼロで、
// R²やバンド幅が定義できない場合のエラーです。R²=1として隠蔽せず必ず表面化します。
type DegenerateVarianceError struct {
	Op       string
	Variable string
}

func (e *DegenerateVarianceError) Error() string {
	return fmt.Sprintf("npreg: %s: %s has zero variance; the requested quantity is undefined", e.Op, e.Variable)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DegenerateVarianceError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("variable", e.Variable).
		Str("type", "DegenerateVarianceError")
}

// NewDegenerateVarianceError は新しいDegenerateVarianceErrorを作成し、スタックトレースを付与します。
func NewDegenerateVarianceError(op, variable string) error {
	err := &DegenerateVarianceError{Op: op, Variable: variable}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("npreg: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
// 例えば、負のバンド幅や範囲外の被覆率を渡した場合など。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("npreg: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Inf、オーバーフロー、アンダーフローなどを検出します。
type NumericalInstabilityError struct {
	Operation string    // 発生した操作（例: "bandwidth_cv", "local_wls"）
	Values    []float64 // 問題のある値
	Iteration int       // 発生したイテレーション番号
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("npreg: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")
)
