package logging

import (
	"context"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type ctxKey struct{}

func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("logging", pflag.ExitOnError)
	fs.String("log-level", "info", "zap log level")
	fs.Bool("is-prod", false, "use the production logger config")
	return fs
}

func NewFromFlags() (*zap.Logger, error) {
	return New(viper.GetBool("is-prod"), viper.GetString("log-level"))
}

func New(production bool, level string) (*zap.Logger, error) {
	var conf zap.Config
	if production {
		conf = zap.NewProductionConfig()
	} else {
		conf = zap.NewDevelopmentConfig()
	}

	if err := conf.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	return conf.Build()
}

func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request-scoped logger, falling back to the
// global one when the context carries none.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return zap.L()
	}
	if logger, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return logger
	}
	return zap.L()
}
