// Package diagnostics provides structured logging and the fatal-error
// taxonomy shared by regalloc, gvnpre, ia32, and pipeline (spec §7).
//
// Grounded on the teacher's pkg/logger, which wraps log/slog with named
// compiler-phase helpers (LogPhase, LogCodeGen, LogOptimization,
// LogCompilerStart/Complete). Those helpers and call sites are kept
// verbatim; the backing logger is upgraded to go.uber.org/zap, the
// structured logger several pack members depend on directly
// (see SPEC_FULL.md §7 Ambient Stack).
package diagnostics

import "go.uber.org/zap"

var base *zap.SugaredLogger

func init() {
	InitDev()
}

// Config mirrors the teacher's logger.Config shape.
type Config struct {
	Development bool
	LogFile     string
}

// DefaultConfig returns the default logging configuration (development,
// console output), matching logger.DefaultConfig's intent.
func DefaultConfig() Config {
	return Config{Development: true}
}

// Init (re)configures the global logger.
func Init(cfg Config) error {
	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.LogFile != "" {
		zcfg.OutputPaths = []string{cfg.LogFile}
	}
	l, err := zcfg.Build()
	if err != nil {
		return err
	}
	base = l.Sugar()
	return nil
}

// InitDev initializes logging for development: debug level, console
// encoding, matches logger.InitDev.
func InitDev() {
	_ = Init(Config{Development: true})
}

// InitProd initializes logging for production: info level, JSON encoding
// to a file, matches logger.InitProd.
func InitProd(logFile string) error {
	return Init(Config{Development: false, LogFile: logFile})
}

func L() *zap.SugaredLogger {
	if base == nil {
		InitDev()
	}
	return base
}

func Debug(msg string, args ...any) { L().Debugw(msg, args...) }
func Info(msg string, args ...any)  { L().Infow(msg, args...) }
func Warn(msg string, args ...any)  { L().Warnw(msg, args...) }
func Error(msg string, args ...any) { L().Errorw(msg, args...) }

// Compiler-phase helpers, kept under the teacher's names.

func LogPhase(phase string)         { Info("starting compilation phase", "phase", phase) }
func LogPhaseComplete(phase string) { Info("completed compilation phase", "phase", phase) }

func LogCodeGen(arch, funcName string, instructionCount int) {
	Debug("code generation complete", "arch", arch, "function", funcName, "instructions", instructionCount)
}

func LogOptimization(pass string, changeCount int) {
	Info("optimization pass complete", "pass", pass, "changes", changeCount)
}

func LogCompilerStart(args []string) { Info("firmc starting", "args", args) }

func LogCompilerComplete(success bool, duration string) {
	if success {
		Info("compilation successful", "duration", duration)
	} else {
		Error("compilation failed", "duration", duration)
	}
}

// Sync flushes buffered log entries; call before process exit.
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
