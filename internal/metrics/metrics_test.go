package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	eventbus "github.com/protectql/depthgate/internal/eventbus"
	events "github.com/protectql/depthgate/internal/events"
	validation "github.com/protectql/depthgate/internal/validation"
)

func TestRecordsGatewayMetrics(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	Register()

	ctx := context.Background()
	eventbus.Publish(ctx, events.HTTPFinish{Status: 200, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.ValidationFinish{Duration: time.Millisecond})
	eventbus.Publish(ctx, events.ValidationFinish{
		Violations: []*validation.Violation{{Rule: "MaxDepth"}, {Rule: "MaxDepth"}},
		Duration:   time.Millisecond,
	})
	eventbus.Publish(ctx, events.ProxyFinish{Status: 200, Duration: time.Millisecond})

	if got := testutil.ToFloat64(httpRequests.WithLabelValues("200")); got != 1 {
		t.Fatalf("http requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(validationTotal.WithLabelValues("pass")); got != 1 {
		t.Fatalf("pass validations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(validationTotal.WithLabelValues("blocked")); got != 1 {
		t.Fatalf("blocked validations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(violationsTotal.WithLabelValues("MaxDepth")); got != 2 {
		t.Fatalf("violations = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(proxyDuration); got != 1 {
		t.Fatalf("proxy duration series = %v, want 1", got)
	}
}

func TestHandlerServesScrape(t *testing.T) {
	if Handler() == nil {
		t.Fatal("nil scrape handler")
	}
}
