package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is disabled until Init is called, which keeps tests quiet.
var Log = zerolog.Nop()

// Init configures the global logger: console output in development, JSON
// everywhere else. An empty or unknown level means info.
func Init(env, level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if env == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "sociofy-messaging")
	if env == "development" {
		ctx = ctx.Caller()
	}
	Log = ctx.Logger()
}

// With returns a child logger tagged with the given component name.
func With(component string) zerolog.Logger {
	return Log.With().Str("component", component).Logger()
}

// ForMessage tags a logger with the message and the user it is headed to.
func ForMessage(messageID, userID string) zerolog.Logger {
	return Log.With().Str("message_id", messageID).Str("user_id", userID).Logger()
}

func Info() *zerolog.Event {
	return Log.Info()
}

func Error() *zerolog.Event {
	return Log.Error()
}

func Warn() *zerolog.Event {
	return Log.Warn()
}

func Debug() *zerolog.Event {
	return Log.Debug()
}

func Fatal() *zerolog.Event {
	return Log.Fatal()
}
