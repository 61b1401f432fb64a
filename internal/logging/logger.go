// Package logging provides CostPilot's operator-facing diagnostic logging:
// a zap-backed structured logger gated by debug_mode, with one log file per
// category under the configured logs directory. This is strictly for
// human/operator diagnostics — it carries no integrity guarantee and is
// never read back by the core. The tamper-evident evidence trail lives in
// internal/audit.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a logical subsystem, matching CostPilot's pipeline stages.
type Category string

const (
	CategoryBoot       Category = "boot"
	CategoryDetection  Category = "detection"
	CategoryPrediction Category = "prediction"
	CategoryExplain    Category = "explain"
	CategoryPolicy     Category = "policy"
	CategoryBaseline   Category = "baseline"
	CategoryAudit      Category = "audit"
	CategorySandbox    Category = "sandbox"
	CategoryLicense    Category = "license"
	CategoryPipeline   Category = "pipeline"
)

var (
	mu         sync.RWMutex
	loggers    = make(map[Category]*zap.SugaredLogger)
	logsDir    string
	debugMode  bool
	baseFields []zap.Field
)

// Initialize sets up the logging directory under the workspace and records
// whether debug-mode file logging is enabled. In production (debug disabled)
// this is a silent no-op: no files are created, matching the core's "no
// filesystem access beyond the documented inputs/outputs" posture.
func Initialize(workspaceDir string, debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	debugMode = debug
	if !debug {
		return nil
	}
	if workspaceDir == "" {
		return fmt.Errorf("logging: workspace directory required in debug mode")
	}
	logsDir = filepath.Join(workspaceDir, ".costpilot", "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("logging: create logs dir: %w", err)
	}
	return nil
}

// IsDebugMode reports whether file logging is active.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugMode
}

// Get returns (creating if needed) the logger for a category. It is a
// no-op sink when debug mode is disabled.
func Get(category Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	var core zapcore.Core
	if !debugMode || logsDir == "" {
		core = zapcore.NewNopCore()
	} else {
		path := filepath.Join(logsDir, string(category)+".log")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			core = zapcore.NewNopCore()
		} else {
			encCfg := zap.NewProductionEncoderConfig()
			encCfg.TimeKey = "ts"
			core = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zapcore.DebugLevel)
		}
	}

	l := zap.New(core).Sugar().With("category", string(category))
	loggers[category] = l
	return l
}

// CloseAll flushes every open logger. Call once at process shutdown.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		_ = l.Sync()
	}
	loggers = make(map[Category]*zap.SugaredLogger)
}
