package telemetry

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/embedded"
)

type recordingLogger struct {
	embedded.Logger
	records []log.Record
}

func (l *recordingLogger) Emit(ctx context.Context, r log.Record) {
	l.records = append(l.records, r)
}

func (l *recordingLogger) Enabled(ctx context.Context, param log.EnabledParameters) bool {
	return true
}

func TestOtelLogWriter(t *testing.T) {
	rec := &recordingLogger{}
	logger := zerolog.New(zerolog.MultiLevelWriter(NewOtelLogWriter(rec)))

	logger.Warn().Msg("upstream slow")

	require.Len(t, rec.records, 1)
	require.Contains(t, rec.records[0].Body().AsString(), "upstream slow")
	require.Equal(t, log.SeverityWarn, rec.records[0].Severity())
	require.Equal(t, "warn", rec.records[0].SeverityText())
}

func TestOtelLogWriter_PlainWrite(t *testing.T) {
	rec := &recordingLogger{}
	n, err := NewOtelLogWriter(rec).Write([]byte("raw"))
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, log.SeverityUndefined, rec.records[0].Severity())
}
