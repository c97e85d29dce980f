package observability

import (
	"context"
	"testing"
	"time"
)

func TestInitTracer_UnreachableEndpoint(t *testing.T) {
	// The OTLP-HTTP exporter connects lazily, so init succeeds even when
	// nothing listens on the endpoint.
	shutdown, err := InitTracer(context.Background(), "cronside-test", "127.0.0.1:1", true)
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown function should be non-nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
