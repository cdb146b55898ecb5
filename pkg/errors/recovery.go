package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError は回復されたパニックから生成されるエラー。
// gonumの行列形状パニックや数値カーネル内の添字エラーを、呼び出し側が
// 扱える構造化エラーへ変換するために使う。
type PanicError struct {
	// PanicValue はpanic()に渡された元の値
	PanicValue interface{}

	// StackTrace はパニック時点のスタックトレース
	StackTrace string

	// Operation はパニックが回復された場所を識別する
	Operation string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// NewPanicError は操作コンテキストとパニック値からPanicErrorを作成する
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover はdeferと組み合わせてパニックをエラーへ変換する。
//
//	func (lp *LocalPolynomial) Fit(X, y mat.Matrix) (err error) {
//	    defer errors.Recover(&err, "LocalPolynomial.Fit")
//	    // パニックし得る数値計算
//	    return nil
//	}
//
// 既にエラーが設定されている場合はパニック情報でラップする。
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		if *err != nil {
			*err = fmt.Errorf("panic in %s: %v (original error: %w)", operation, r, *err)
			return
		}
		*err = NewPanicError(operation, r)
	}
}

// SafeExecute は関数を実行し、パニックをエラーへ変換して返す。
// ブートストラップ再標本やCVフォールドなど、1つの作業単位の失敗が
// バッチ全体を巻き込まないようにするために使う。
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
