package log

import "go.uber.org/zap"

type (
	Logger = zap.Logger
	Field  = zap.Field
)

var (
	Any      = zap.Any
	Err      = zap.Error
	Str      = zap.String
	Int      = zap.Int
	Bool     = zap.Bool
	Stringer = zap.Stringer
	Dur      = zap.Duration
)

func New(env string) *Logger {
	var (
		l   *zap.Logger
		err error
	)
	if env == "prod" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return zap.NewNop()
	}

	return l.With(zap.String("service", "sales"))
}

// Nop returns a logger that discards everything. Components fall back to it
// when constructed without a logger.
func Nop() *Logger {
	return zap.NewNop()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}
