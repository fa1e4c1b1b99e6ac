package logging

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevelParsing(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tc := range cases {
		logger := NewLogger(Config{Level: tc.in})
		if logger.GetLevel() != tc.want {
			t.Fatalf("NewLogger(level=%q) = %s, want %s", tc.in, logger.GetLevel(), tc.want)
		}
	}
}
