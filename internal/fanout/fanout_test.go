package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMapKeepsInputOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}
	got, err := Map(context.Background(), 2, items, func(_ context.Context, i int, item int) (int, error) {
		return item * 10, nil
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if diff := cmp.Diff([]int{50, 40, 30, 20, 10}, got); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestMapBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 32)
	_, err := Map(context.Background(), 3, items, func(_ context.Context, _ int, _ int) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		inFlight.Add(-1)
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if peak.Load() > 3 {
		t.Fatalf("peak concurrency = %d, want <= 3", peak.Load())
	}
}

func TestMapReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Map(context.Background(), 1, []int{1, 2, 3}, func(_ context.Context, _ int, item int) (int, error) {
		if item == 2 {
			return 0, boom
		}
		return item, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestGatherDegradesFailedTasks(t *testing.T) {
	boom := errors.New("unreachable")
	got := Gather(context.Background(), 4, []string{"a", "b", "c"}, func(_ context.Context, item string) (string, error) {
		if item == "b" {
			return "", boom
		}
		return item + "!", nil
	})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if !got[0].OK() || got[0].Value != "a!" {
		t.Fatalf("slot 0 = %+v", got[0])
	}
	if got[1].OK() || !errors.Is(got[1].Err, boom) {
		t.Fatalf("slot 1 = %+v, want error", got[1])
	}
	if !got[2].OK() || got[2].Value != "c!" {
		t.Fatalf("slot 2 = %+v", got[2])
	}
}

func TestGatherHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := Gather(ctx, 2, []int{1, 2}, func(_ context.Context, item int) (int, error) {
		return item, nil
	})
	for i, o := range got {
		if !errors.Is(o.Err, context.Canceled) {
			t.Fatalf("slot %d err = %v, want context.Canceled", i, o.Err)
		}
	}
}
