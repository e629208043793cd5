package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	GameIDKey   string = "gameID"
	OpKey       string = "op"
	PlayerIDKey string = "playerID"
	SeatNumKey  string = "seatNo"
	RevisionKey string = "revision"
	ErrCodeKey  string = "errCode"
)

func getEnableColorLog() string {
	v := os.Getenv("COLORIZE_LOG")
	if v == "" {
		return "true"
	}
	return v
}

func IsColorLoggingEnabled() bool {
	return getEnableColorLog() == "1" || strings.ToLower(getEnableColorLog()) == "true"
}

// GetZeroLogger returns a console logger tagged with name. out defaults to stdout.
func GetZeroLogger(name string, out io.Writer) *zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	noColor := !IsColorLoggingEnabled()
	output := zerolog.ConsoleWriter{Out: out, NoColor: noColor, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Str("logger", name).Logger()
	return &logger
}

// Nop returns a logger that discards everything, for tests.
func Nop() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}
