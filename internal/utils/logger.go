package utils

import "go.uber.org/zap"

// NewLogger picks the zap preset for env; "test" silences output.
func NewLogger(env string) *zap.Logger {
	var log *zap.Logger
	var err error
	switch env {
	case "test":
		return zap.NewNop()
	case "development":
		log, err = zap.NewDevelopment()
	default:
		log, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return log.With(zap.String("env", env))
}
