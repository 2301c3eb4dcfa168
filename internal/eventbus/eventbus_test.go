package eventbus

import (
	"context"
	"testing"
)

type ping struct{ N int }
type pong struct{ N int }

func TestDispatchByType(t *testing.T) {
	Use(New())
	defer Use(nil)

	var pings, pongs []int
	Subscribe(func(ctx context.Context, e ping) { pings = append(pings, e.N) })
	Subscribe(func(ctx context.Context, e pong) { pongs = append(pongs, e.N) })

	ctx := context.Background()
	Publish(ctx, ping{1})
	Publish(ctx, ping{2})
	Publish(ctx, pong{3})

	if len(pings) != 2 || pings[0] != 1 || pings[1] != 2 {
		t.Fatalf("ping handler saw %v", pings)
	}
	if len(pongs) != 1 || pongs[0] != 3 {
		t.Fatalf("pong handler saw %v", pongs)
	}
}

func TestNoBusInstalled(t *testing.T) {
	Use(nil)
	Subscribe(func(ctx context.Context, e ping) { t.Fatal("handler should not fire") })
	Publish(context.Background(), ping{1}) // must not panic
}

func TestMultipleHandlers(t *testing.T) {
	Use(New())
	defer Use(nil)

	count := 0
	Subscribe(func(ctx context.Context, e ping) { count++ })
	Subscribe(func(ctx context.Context, e ping) { count++ })
	Publish(context.Background(), ping{1})
	if count != 2 {
		t.Fatalf("expected both handlers to fire, got %d", count)
	}
}
