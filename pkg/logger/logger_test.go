package logger

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	err := errors.New("boom")

	tests := []struct {
		name string
		in   []any
		want []any
	}{
		{"bare error", []any{err}, []any{slog.Any("error", err)}},
		{"key value", []any{"user_id", 7}, []any{"user_id", 7}},
		{"trailing string", []any{"oops"}, []any{slog.String("detail", "oops")}},
		{"attr", []any{slog.Int("n", 1)}, []any{slog.Int("n", 1)}},
		{"error then pair", []any{err, "id", 3}, []any{slog.Any("error", err), "id", 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize(tt.in))
		})
	}
}
