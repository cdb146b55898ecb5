package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	nperrors "github.com/YuminosukeSato/npreg/pkg/errors"
)

// ErrFmtHandler is a slog handler that enriches error attributes emitted by
// the estimators. For errors carrying a cockroachdb/errors stack trace it adds
// a stacktrace attribute; for npreg's typed numerical errors it adds an
// error.kind attribute naming the failure class, so log pipelines can filter
// on singular fits or degenerate variance without parsing messages.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps the standard slog handler.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{
		handler: handler,
	}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var stacktrace, kind string
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == ErrAttrKey {
			err, ok := attr.Value.Any().(error)
			if ok {
				stacktrace = extractStacktrace(err)
				kind = errorKind(err)
			}
			return false
		}
		return true
	})
	if stacktrace != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, stacktrace))
	}
	if kind != "" {
		r.AddAttrs(slog.String(ErrKindAttrKey, kind))
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

// errorKind maps npreg's typed numerical errors to a stable label.
func errorKind(err error) string {
	var (
		notFitted    *nperrors.NotFittedError
		insufficient *nperrors.InsufficientDataError
		singular     *nperrors.SingularFitError
		degenerate   *nperrors.DegenerateVarianceError
		dimension    *nperrors.DimensionError
		value        *nperrors.ValueError
		instability  *nperrors.NumericalInstabilityError
	)
	switch {
	case errors.As(err, &notFitted):
		return "not_fitted"
	case errors.As(err, &insufficient):
		return "insufficient_data"
	case errors.As(err, &singular):
		return "singular_fit"
	case errors.As(err, &degenerate):
		return "degenerate_variance"
	case errors.As(err, &dimension):
		return "dimension_mismatch"
	case errors.As(err, &value):
		return "invalid_value"
	case errors.As(err, &instability):
		return "numerical_instability"
	default:
		return ""
	}
}
