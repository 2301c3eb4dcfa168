package reqid

import (
	"context"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	if !ok || got != id {
		t.Fatalf("FromContext = (%d, %v), want (%d, true)", got, ok, id)
	}
}

func TestAbsent(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("expected no request ID on a fresh context")
	}
}
