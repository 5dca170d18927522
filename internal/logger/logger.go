package logger

import (
	"io"
	"log/slog"
	"os"
)

var log *slog.Logger

// Init инициализирует глобальный логгер.
// env: "development" (текст, debug), "test" (текст, warn), иначе JSON/info.
func Init(env string) {
	InitWithWriter(env, os.Stdout)
}

func InitWithWriter(env string, w io.Writer) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{Level: slog.LevelInfo, AddSource: true}

	switch env {
	case "development":
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	case "test":
		opts.Level = slog.LevelWarn
		opts.AddSource = false
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	log = slog.New(handler).With("service", "mchat")
	slog.SetDefault(log)
}

// GetLogger возвращает глобальный логгер
func GetLogger() *slog.Logger {
	if log == nil {
		Init("development")
	}
	return log
}

func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// Fatal логирует и завершает процесс
func Fatal(msg string, args ...any) {
	GetLogger().Error(msg, args...)
	os.Exit(1)
}

// WSLog - событие websocket-соединения; ошибки на warn, остальное на debug
func WSLog(event, userID, connID string, err error) {
	fields := []any{"event", event, "user_id", userID, "conn_id", connID}
	if err != nil {
		GetLogger().Warn("websocket event failed", append(fields, "error", err.Error())...)
		return
	}
	GetLogger().Debug("websocket event", fields...)
}

// WorkerLog - операция фонового воркера
func WorkerLog(worker, operation string, err error) {
	fields := []any{"worker", worker, "operation", operation}
	if err != nil {
		GetLogger().Error("worker operation failed", append(fields, "error", err.Error())...)
		return
	}
	GetLogger().Info("worker operation completed", fields...)
}
