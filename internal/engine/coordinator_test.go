package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"reflect"
	"sync"
	"testing"
	"time"

	"taur/internal/failure"
	"taur/internal/repo"
	"taur/internal/result"
	"taur/internal/vcs"
)

func TestNewCoordinator_Validation(t *testing.T) {
	if _, err := NewCoordinator(nil, 1); err == nil {
		t.Fatalf("expected error for nil executor")
	}
	for _, n := range []int{0, -3} {
		if _, err := NewCoordinator(&stubExecutor{}, n); err == nil {
			t.Fatalf("expected error for maxParallel=%d", n)
		}
	}
}

func TestCoordinator_Run_InputOrderUnderShuffledCompletion(t *testing.T) {
	const n = 24
	var names []string
	stub := &stubExecutor{delays: map[string]time.Duration{}, outcomes: map[string]result.Outcome{}}
	for i := range n {
		name := fmt.Sprintf("pkg-%02d", i)
		names = append(names, name)
		stub.delays[name] = time.Duration(rand.IntN(20)) * time.Millisecond
		if i%3 == 0 {
			stub.outcomes[name] = result.Updated([]string{"bump " + name})
		}
	}

	coord, err := NewCoordinator(stub, 6)
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	got := coord.Run(context.Background(), makeHandles(names...), vcs.CheckOnly)

	if len(got) != n {
		t.Fatalf("len(result) = %d, want %d", len(got), n)
	}
	if !reflect.DeepEqual(entryNames(got), names) {
		t.Fatalf("result order = %v, want input order %v", entryNames(got), names)
	}
	for i, e := range got {
		if wantUpdated := i%3 == 0; e.Outcome.IsUpdated() != wantUpdated {
			t.Fatalf("%s: updated=%v, want %v", e.Repo.Name, e.Outcome.IsUpdated(), wantUpdated)
		}
	}
	if int(stub.calls.Load()) != n {
		t.Fatalf("executor calls = %d, want %d", stub.calls.Load(), n)
	}
}

func TestCoordinator_Run_RespectsMaxParallel(t *testing.T) {
	for _, limit := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			stub := &stubExecutor{delays: map[string]time.Duration{}}
			var names []string
			for i := range 30 {
				name := fmt.Sprintf("p%d", i)
				names = append(names, name)
				stub.delays[name] = 3 * time.Millisecond
			}
			coord, _ := NewCoordinator(stub, limit)
			got := coord.Run(context.Background(), makeHandles(names...), vcs.CheckOnly)

			if len(got) != len(names) {
				t.Fatalf("len(result) = %d, want %d", len(got), len(names))
			}
			if hw := int(stub.maxInFlight.Load()); hw > limit || hw < 1 {
				t.Fatalf("high-water mark = %d, want 1..%d", hw, limit)
			}
		})
	}
}

func TestCoordinator_Run_FailureIsolation(t *testing.T) {
	stub := &stubExecutor{
		outcomes: map[string]result.Outcome{
			"good":   result.Updated([]string{"c1"}),
			"broken": unreachable("broken"),
		},
		panicOn: "explodes",
	}
	coord, _ := NewCoordinator(stub, 2)
	got := coord.Run(context.Background(), makeHandles("good", "broken", "explodes", "fine"), vcs.CheckOnly)

	if len(got) != 4 {
		t.Fatalf("len(result) = %d, want 4", len(got))
	}
	if !got[0].Outcome.IsUpdated() {
		t.Fatalf("good: expected updated, got %s", got[0].Outcome.Status())
	}
	if got[1].Outcome.Kind() != failure.RemoteUnreachable {
		t.Fatalf("broken: kind = %v, want RemoteUnreachable", got[1].Outcome.Kind())
	}
	if !got[2].Outcome.IsFailed() || got[2].Outcome.Kind() != failure.ToolFailure {
		t.Fatalf("explodes: expected ToolFailure, got %s/%v", got[2].Outcome.Status(), got[2].Outcome.Kind())
	}
	if got[3].Outcome.IsFailed() {
		t.Fatalf("fine: unexpected failure %v", got[3].Outcome.Err())
	}
}

func TestCoordinator_Run_CanceledBeforeDispatch(t *testing.T) {
	stub := &stubExecutor{}
	coord, _ := NewCoordinator(stub, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := coord.Run(ctx, makeHandles("a", "b", "c"), vcs.CheckAndMerge)
	if len(got) != 3 {
		t.Fatalf("len(result) = %d, want 3", len(got))
	}
	for _, e := range got {
		if e.Outcome.Kind() != failure.Interrupted || !e.Outcome.IsFailed() {
			t.Fatalf("%s: expected Interrupted, got %s/%v", e.Repo.Name, e.Outcome.Status(), e.Outcome.Kind())
		}
	}
	if stub.calls.Load() != 0 {
		t.Fatalf("executor must not be called after cancellation, got %d calls", stub.calls.Load())
	}
}

func TestCoordinator_Run_CancelMidRun(t *testing.T) {
	stub := &stubExecutor{
		delays:  map[string]time.Duration{"a": time.Minute, "b": time.Minute, "c": time.Minute},
		started: make(chan string, 3),
	}
	coord, _ := NewCoordinator(stub, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-stub.started
		cancel()
	}()

	start := time.Now()
	got := coord.Run(ctx, makeHandles("a", "b", "c"), vcs.CheckOnly)
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("Run did not stop promptly after cancellation: %s", elapsed)
	}

	if !reflect.DeepEqual(entryNames(got), []string{"a", "b", "c"}) {
		t.Fatalf("unexpected entries: %v", entryNames(got))
	}
	for _, e := range got {
		if e.Outcome.Kind() != failure.Interrupted {
			t.Fatalf("%s: kind = %v, want Interrupted", e.Repo.Name, e.Outcome.Kind())
		}
	}
	if calls := stub.calls.Load(); calls != 1 {
		t.Fatalf("executor calls = %d, want 1", calls)
	}
}

func TestCoordinator_Run_Empty(t *testing.T) {
	coord, _ := NewCoordinator(&stubExecutor{}, 3)
	if got := coord.Run(context.Background(), nil, vcs.CheckOnly); len(got) != 0 {
		t.Fatalf("expected empty result, got %d entries", len(got))
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []int
	finished map[int]result.Entry
}

func (o *recordingObserver) RepoStarted(i int, _ repo.Handle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, i)
}

func (o *recordingObserver) RepoFinished(i int, e result.Entry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished == nil {
		o.finished = make(map[int]result.Entry)
	}
	o.finished[i] = e
}

func TestCoordinator_Observer(t *testing.T) {
	stub := &stubExecutor{outcomes: map[string]result.Outcome{"b": unreachable("b")}}
	base, _ := NewCoordinator(stub, 2)
	obs := &recordingObserver{}
	got := base.WithObserver(obs).Run(context.Background(), makeHandles("a", "b", "c"), vcs.CheckOnly)

	if len(obs.started) != 3 || len(obs.finished) != 3 {
		t.Fatalf("observer saw %d starts, %d finishes; want 3 each", len(obs.started), len(obs.finished))
	}
	for i, e := range got {
		if obs.finished[i].Repo.Name != e.Repo.Name || obs.finished[i].Outcome.Status() != e.Outcome.Status() {
			t.Fatalf("observer entry %d = %+v, want %+v", i, obs.finished[i], e)
		}
	}
	if base.observer != nil {
		t.Fatalf("WithObserver must not modify the receiver")
	}
}

func TestCoordinator_Observer_ReportsUndispatched(t *testing.T) {
	coord, _ := NewCoordinator(&stubExecutor{}, 1)
	obs := &recordingObserver{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	coord.WithObserver(obs).Run(ctx, makeHandles("a", "b"), vcs.CheckOnly)

	if len(obs.started) != 0 {
		t.Fatalf("no repository should start, got %v", obs.started)
	}
	if len(obs.finished) != 2 {
		t.Fatalf("finished = %d, want 2", len(obs.finished))
	}
}
