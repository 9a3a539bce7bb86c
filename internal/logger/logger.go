package logger

import "go.uber.org/zap"

// Log is the global logger. It defaults to a no-op logger so packages can
// log before Initialize runs (and so tests don't need setup).
var Log *zap.Logger = zap.NewNop()

// Initialize builds the production logger at the given level
func Initialize(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl

	zl, err := cfg.Build()
	if err != nil {
		return err
	}

	Log = zl
	return nil
}
