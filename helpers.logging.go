package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	LoggerContextKey ContextKey = "request.logger"

	megabyte = 1 << 20
)

// Field keys shared by every catalog log line.
const (
	LogKeyRequestID   = "request.id"
	LogKeyBookID      = "book.id"
	LogKeyBookTitle   = "book.title"
	LogKeyBookAuthor  = "book.author"
	LogKeyEventID     = "event.id"
	LogKeyQueueID     = "qid"
	LogKeyGraphQLName = "graphql.operation"
)

// BookFields describes a catalog entity in logs.
func BookFields(entity BookEntity) []zap.Field {
	return []zap.Field{
		zap.Int(LogKeyBookID, entity.ID),
		zap.String(LogKeyBookTitle, entity.Book.Title),
		zap.String(LogKeyBookAuthor, entity.Book.Author.Name),
	}
}

// EventFields describes a journal event in logs.
func EventFields(event BookEvent) []zap.Field {
	return append(BookFields(event.Entity), zap.String(LogKeyEventID, event.ID))
}

// RSyncWrite is a size-rotated and concurrent safe log file writer used
// as the zap.WriteSyncer of the file core. A new file named after the
// current time is opened once the next write would exceed max megabytes.
type RSyncWrite struct {
	sync.Mutex
	clock  Clocker
	file   *os.File
	folder string
	max    int64
	size   int64
	isProd bool
}

func NewRSyncWriter(config *Config, clock Clocker) *RSyncWrite {
	return &RSyncWrite{
		clock:  clock,
		folder: config.LogFolder,
		max:    int64(config.LogMaxSize) * megabyte,
		isProd: config.IsProduction,
	}
}

// rotate closes the current file if any and opens a fresh one.
// The caller must hold the lock.
func (rsw *RSyncWrite) rotate() error {
	if rsw.file != nil {
		if err := rsw.file.Close(); err != nil {
			return err
		}
		rsw.file = nil
	}
	path := CreateLogFilePath(rsw.folder, rsw.isProd, rsw.clock.Now())
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	rsw.file = file
	rsw.size = 0
	return nil
}

// Write appends p to the current file, rotating first when needed.
func (rsw *RSyncWrite) Write(p []byte) (int, error) {
	rsw.Lock()
	defer rsw.Unlock()
	if int64(len(p)) > rsw.max {
		return 0, fmt.Errorf("logging: log size %d exceeds max file size %d", len(p), rsw.max)
	}
	if rsw.file == nil || rsw.size+int64(len(p)) > rsw.max {
		if err := rsw.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := rsw.file.Write(p)
	rsw.size += int64(n)
	return n, err
}

func (rsw *RSyncWrite) Sync() error {
	rsw.Lock()
	defer rsw.Unlock()
	if rsw.file == nil {
		return nil
	}
	return rsw.file.Sync()
}

// Close closes the current log file. A later write opens a new one.
func (rsw *RSyncWrite) Close() error {
	rsw.Lock()
	defer rsw.Unlock()
	if rsw.file == nil {
		return nil
	}
	err := rsw.file.Close()
	rsw.file = nil
	return err
}

// SyncWrite wraps stdout with a no-op Sync to avoid the usual
// `Handle is invalid` error when zap syncs a console.
type SyncWrite struct {
	out *os.File
}

func (sw *SyncWrite) Sync() error {
	return nil
}

func (sw *SyncWrite) Write(p []byte) (n int, err error) {
	return sw.out.Write(p)
}

func newEncoderConfig(isProd bool) zapcore.EncoderConfig {
	zapConfig := zap.NewDevelopmentEncoderConfig()
	if isProd {
		zapConfig = zap.NewProductionEncoderConfig()
	}
	zapConfig.TimeKey = "ts"
	zapConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.LevelKey = "lvl"
	zapConfig.NameKey = "name"
	zapConfig.MessageKey = "msg"
	zapConfig.CallerKey = "caller"
	zapConfig.StacktraceKey = "skt"
	return zapConfig
}

// SetupLogging builds the catalog logger. Logs always go to the rotated
// file and are mirrored to stdout outside production. Every line carries
// the build details and is timestamped by the app clock.
func SetupLogging(config *Config, w *RSyncWrite, clock TickerClocker) (*zap.Logger, func() error) {
	zapConfig := newEncoderConfig(config.IsProduction)
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(zapConfig), w, config.LogLevel),
	}
	if !config.IsProduction {
		cores = append(cores,
			zapcore.NewCore(zapcore.NewConsoleEncoder(zapConfig), zapcore.Lock(&SyncWrite{os.Stdout}), config.LogLevel),
		)
	}
	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.FatalLevel), zap.WithClock(clock)).
		Named("catalog").
		With(
			zap.String("app.commit", config.GitCommit),
			zap.String("app.tag", config.GitTag),
			zap.String("app.built", config.BuildTime),
			zap.Bool("app.journal", config.Journal.Enabled),
		)

	flusher := func() error {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("[flush logs]: %w", err)
		}
		return nil
	}

	return logger, flusher
}

// RequestLogger scopes the app logger to a single request.
func (api *APIHandler) RequestLogger(requestID string) *zap.Logger {
	return api.logger.With(zap.String(LogKeyRequestID, requestID))
}

// GetLoggerFromContext returns the request scoped logger set by the
// request id middleware or the app logger when missing.
func (api *APIHandler) GetLoggerFromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*zap.Logger); ok {
		return logger
	}
	return api.logger
}

// CreateLogFilePath builds the path of a log file opened at t.
func CreateLogFilePath(folder string, isProd bool, t time.Time) string {
	envKey := "dev"
	if isProd {
		envKey = "prod"
	}
	name := fmt.Sprintf("%s.%s.log", t.Format("20060102.150405"), envKey)
	return filepath.Join(folder, name)
}
