package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestSetup_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), "checklive", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_ExportsSpans(t *testing.T) {
	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case received <- r.URL.Path:
		default:
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	ctx := context.Background()
	shutdown, err := Setup(ctx, "checklive", srv.URL+"/v1/traces")
	require.NoError(t, err)

	_, span := otel.Tracer("checklive").Start(ctx, "TransferTeam")
	span.End()
	require.NoError(t, shutdown(ctx))

	select {
	case path := <-received:
		assert.Equal(t, "/v1/traces", path)
	case <-time.After(5 * time.Second):
		t.Fatal("no spans reached the collector")
	}
}
