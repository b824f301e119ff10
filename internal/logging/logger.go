package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	defaultBufferSize = 500
	defaultLevel      = slog.LevelWarn

	// Identifier tags journal entries.
	Identifier = "jobsh"
)

// Logger is a duck-typed interface satisfied by *slog.Logger.
// Use this interface instead of *slog.Logger to decouple from the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig    Config
	globalLevelVar  = newLevelVar(defaultLevel)
	mutex           sync.RWMutex
	logBuffer       = NewRingBuffer(defaultBufferSize)
	sink            atomic.Pointer[sinkBox]
)

type sinkBox struct {
	handler slog.Handler
}

func init() {
	sink.Store(&sinkBox{handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})})
}

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	File    string            `toml:"file"`
	Modules map[string]string `toml:"modules"`
}

// Initialize sets up the logging system and returns a function that closes
// the log file, if one was opened. Loggers handed out before Initialize pick
// up the new outputs and levels.
func Initialize(config Config) (func() error, error) {
	var out io.Writer = os.Stderr
	closer := func() error { return nil }
	if config.File != "" {
		f, err := os.OpenFile(config.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closer = f.Close
	}

	sink.Store(&sinkBox{handler: createHandler(config.Format, out)})
	SetLevels(config)

	slog.SetDefault(slog.New(&moduleHandler{level: globalLevelVar}))
	return closer, nil
}

// SetLevels applies the global and per-module levels of config to every
// logger without touching outputs. Used for live configuration reloads.
func SetLevels(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	globalLevelVar.Set(levelOrDefault(config.Level, defaultLevel))
	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevelLocked(module))
	}
}

// GetBuffer returns the log ring buffer for reading historical logs.
func GetBuffer() *RingBuffer {
	return logBuffer
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	// Double-check in case another goroutine created it
	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	levelVar := newLevelVar(moduleLevelLocked(module))
	logger := slog.New(&moduleHandler{level: levelVar}).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// ModuleLevel returns the effective level name for module.
func ModuleLevel(module string) string {
	mutex.RLock()
	defer mutex.RUnlock()
	return levelToString(moduleLevelLocked(module))
}

func moduleLevelLocked(module string) slog.Level {
	level := globalLevelVar.Level()
	if levelStr, exists := globalConfig.Modules[module]; exists {
		if parsed := parseLevel(levelStr); parsed != nil {
			level = *parsed
		}
	}
	return level
}

// createHandler builds the shared output chain: the text or JSON handler on
// out, the systemd journal when available, and the ring buffer. Filtering
// happens in the module handlers, so every sink accepts all levels.
func createHandler(format string, out io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: slog.LevelDebug}

	var writerHandler slog.Handler
	if format == "json" {
		writerHandler = slog.NewJSONHandler(out, opts)
	} else {
		writerHandler = slog.NewTextHandler(out, opts)
	}

	handlers := []slog.Handler{}
	if isWriterAvailable(out) {
		handlers = append(handlers, writerHandler)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(slog.LevelDebug))
	}
	handlers = append(handlers, NewBufferHandler(logBuffer, slog.LevelDebug))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// isWriterAvailable reports whether out is worth writing to: anything other
// than a file that is the null device.
func isWriterAvailable(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return true
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return (mode&os.ModeCharDevice) != 0 || (mode&os.ModeNamedPipe) != 0 || (mode&os.ModeSocket) != 0 || mode.IsRegular()
}

// moduleHandler filters by a module's level and forwards to the current sink.
type moduleHandler struct {
	level slog.Leveler
	wrap  []func(slog.Handler) slog.Handler
}

func (h *moduleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *moduleHandler) Handle(ctx context.Context, r slog.Record) error {
	out := sink.Load().handler
	for _, w := range h.wrap {
		out = w(out)
	}
	return out.Handle(ctx, r)
}

func (h *moduleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *moduleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *moduleHandler) with(w func(slog.Handler) slog.Handler) *moduleHandler {
	wrap := make([]func(slog.Handler) slog.Handler, len(h.wrap), len(h.wrap)+1)
	copy(wrap, h.wrap)
	return &moduleHandler{level: h.level, wrap: append(wrap, w)}
}

func newLevelVar(level slog.Level) *slog.LevelVar {
	v := &slog.LevelVar{}
	v.Set(level)
	return v
}

func levelOrDefault(level string, fallback slog.Level) slog.Level {
	if parsed := parseLevel(level); parsed != nil {
		return *parsed
	}
	return fallback
}

// ValidLevel reports whether level names a known log level.
func ValidLevel(level string) bool {
	return parseLevel(level) != nil
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) *slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		l := slog.LevelDebug
		return &l
	case "info":
		l := slog.LevelInfo
		return &l
	case "warn", "warning":
		l := slog.LevelWarn
		return &l
	case "error":
		l := slog.LevelError
		return &l
	default:
		return nil
	}
}
