package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/liseren91/aistore-billing/pkg/logger"
)

func TestHandler_ContextAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := slog.New(&logger.Handler{Handler: slog.NewJSONHandler(&buf, nil)})

	payerID := uuid.Must(uuid.NewV4())
	ctx := logger.WithRequestID(context.Background(), "req-42")
	ctx = logger.WithPayerID(ctx, payerID)

	l.InfoContext(ctx, "пополнение баланса")

	out := buf.String()
	require.Contains(t, out, `"request_id":"req-42"`)
	require.Contains(t, out, `"payer_id":"`+payerID.String()+`"`)

	buf.Reset()
	l.InfoContext(context.Background(), "пополнение баланса")

	out = buf.String()
	require.NotContains(t, out, "request_id")
	require.NotContains(t, out, "payer_id")
}

func TestNew(t *testing.T) {
	l, err := logger.New("info", "text")
	require.NoError(t, err)
	require.NotNil(t, l)

	l, err = logger.New("debug", "json")
	require.NoError(t, err)
	require.NotNil(t, l)

	_, err = logger.New("info", "yaml")
	require.Error(t, err)

	_, err = logger.New("loud", "text")
	require.Error(t, err)
}

func TestRequestIDFromCtx(t *testing.T) {
	t.Parallel()

	require.Empty(t, logger.RequestIDFromCtx(context.Background()))

	ctx := logger.WithRequestID(context.Background(), "req-42")
	require.Equal(t, "req-42", logger.RequestIDFromCtx(ctx))
}
