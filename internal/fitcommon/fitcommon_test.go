package fitcommon

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestParseWorkers(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "1", want: 1},
		{in: " 8 ", want: 8},
		{in: "auto", want: 0},
		{in: "AUTO", want: 0},
		{in: "", wantErr: true},
		{in: "0", wantErr: true},
		{in: "-2", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseWorkers(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseWorkers(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseWorkers(%q) unexpected error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseWorkers(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestResolveWorkers(t *testing.T) {
	if got := ResolveWorkers(4, 2); got != 2 {
		t.Fatalf("ResolveWorkers(4, 2) = %d, want 2", got)
	}
	if got := ResolveWorkers(3, 0); got != 3 {
		t.Fatalf("ResolveWorkers(3, 0) = %d, want 3", got)
	}
	if got, want := ResolveWorkers(0, 1<<20), runtime.GOMAXPROCS(0); got != want {
		t.Fatalf("ResolveWorkers(auto) = %d, want %d", got, want)
	}
	if got := ResolveWorkers(-5, 10); got != 1 {
		t.Fatalf("ResolveWorkers(-5, 10) = %d, want 1", got)
	}
}

func TestClampMinMax(t *testing.T) {
	if Clamp(5, 0, 1) != 1 || Clamp(-5, 0, 1) != 0 || Clamp(0.25, 0, 1) != 0.25 {
		t.Fatal("Clamp mismatch")
	}
	if MinInt(2, 3) != 2 || MaxInt(2, 3) != 3 {
		t.Fatal("MinInt/MaxInt mismatch")
	}
}

func TestForEachVisitsEveryIndexOnce(t *testing.T) {
	const n = 100
	var seen [n]int32
	ForEach(context.Background(), n, 7, func(_ context.Context, i int) {
		atomic.AddInt32(&seen[i], 1)
	})
	for i, c := range seen {
		if c != 1 {
			t.Fatalf("index %d visited %d times", i, c)
		}
	}
}

func TestForEachStopsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	visited := 0
	ForEach(ctx, 1000, 1, func(_ context.Context, i int) {
		mu.Lock()
		visited++
		mu.Unlock()
		if i == 4 {
			cancel()
		}
	})
	if visited != 5 {
		t.Fatalf("visited %d indices after cancel, want 5", visited)
	}
}

func TestReserveEvalCapsAtMax(t *testing.T) {
	const (
		maxEvals = 47
		workers  = 8
	)

	var evals int64
	var granted int64
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, ok := ReserveEval(&evals, maxEvals); !ok {
					return
				}
				atomic.AddInt64(&granted, 1)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&granted); got != maxEvals {
		t.Fatalf("granted evaluations = %d, want %d", got, maxEvals)
	}
	if got := atomic.LoadInt64(&evals); got != maxEvals {
		t.Fatalf("eval counter = %d, want %d", got, maxEvals)
	}
}

func TestNewMayflyConfig(t *testing.T) {
	for _, variant := range append([]string{"DESMA"}, MayflyVariants...) {
		t.Run(variant, func(t *testing.T) {
			cfg, err := NewMayflyConfig(variant, 10, 5, 20)
			if err != nil {
				t.Fatalf("NewMayflyConfig(%q) unexpected error: %v", variant, err)
			}
			if cfg.ProblemSize != 5 || cfg.NPop != 10 || cfg.MaxIterations != 20 {
				t.Fatalf("config = size %d pop %d iters %d", cfg.ProblemSize, cfg.NPop, cfg.MaxIterations)
			}
			if cfg.LowerBound != 0 || cfg.UpperBound != 1 || cfg.NM != 1 {
				t.Fatalf("bounds/NM = %v/%v/%d", cfg.LowerBound, cfg.UpperBound, cfg.NM)
			}
		})
	}
	if _, err := NewMayflyConfig("bogus", 10, 5, 20); err == nil {
		t.Fatal("expected error for unknown variant")
	}
}
