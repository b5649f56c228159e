package kernel

import (
	"errors"
	"testing"
)

type fakeNode struct {
	*Base
	run func(inputs, params map[string]any) (map[string]any, error)
}

func (f *fakeNode) Run(inputs, params map[string]any) (map[string]any, error) {
	return f.run(inputs, params)
}

func newFake(run func(inputs, params map[string]any) (map[string]any, error)) *fakeNode {
	return &fakeNode{Base: NewBase(nil), run: run}
}

func TestExecute_Done(t *testing.T) {
	n := newFake(func(inputs, params map[string]any) (map[string]any, error) {
		return map[string]any{"message": map[string]any{"data": "hi"}}, nil
	})

	out := n.Execute(n, nil, nil)
	if n.Status() != StatusDone {
		t.Fatalf("status = %s, want done", n.Status())
	}
	if n.Calls() != 1 {
		t.Fatalf("calls = %d, want 1", n.Calls())
	}
	msg, ok := out["message"].(map[string]any)
	if !ok {
		t.Fatalf("message missing or wrong type: %#v", out["message"])
	}
	meta, ok := msg["_meta"].(map[string]any)
	if !ok {
		t.Fatalf("_meta missing: %#v", msg)
	}
	if _, ok := meta["revision"].(string); !ok {
		t.Fatalf("revision missing or not a string: %#v", meta)
	}
}

func TestExecute_Pause(t *testing.T) {
	n := newFake(func(inputs, params map[string]any) (map[string]any, error) {
		return nil, &PauseSignal{Reason: "waiting"}
	})
	n.Execute(n, nil, nil)
	if n.Status() != StatusPause {
		t.Fatalf("status = %s, want pause", n.Status())
	}
	n.Resume()
	if n.Status() != StatusReady {
		t.Fatalf("status after resume = %s, want ready", n.Status())
	}
}

func TestExecute_Limit(t *testing.T) {
	n := newFake(func(inputs, params map[string]any) (map[string]any, error) {
		return nil, &LimitSignal{Reason: "quota"}
	})
	n.Execute(n, nil, nil)
	if n.Status() != StatusLimit {
		t.Fatalf("status = %s, want limit", n.Status())
	}
}

func TestExecute_Fatal(t *testing.T) {
	wantErr := errors.New("boom")
	n := newFake(func(inputs, params map[string]any) (map[string]any, error) {
		return nil, wantErr
	})
	n.Execute(n, nil, nil)
	if n.Status() != StatusFatal {
		t.Fatalf("status = %s, want fatal", n.Status())
	}
	if !errors.Is(n.Err(), wantErr) {
		t.Fatalf("err = %v, want %v", n.Err(), wantErr)
	}
}

func TestExecute_NonExecutingStatusNotOverwritten(t *testing.T) {
	// If a limit-post hook already set status to limit, Execute must not
	// stomp it back to done.
	n := newFake(func(inputs, params map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	})
	out := n.Execute(&limitedPostNode{fakeNode: n}, nil, nil)
	if n.Status() != StatusLimit {
		t.Fatalf("status = %s, want limit", n.Status())
	}
	_ = out
}

type limitedPostNode struct {
	*fakeNode
}

func (l *limitedPostNode) CheckLimitPre(params map[string]any) bool  { return false }
func (l *limitedPostNode) CheckLimitPost(params map[string]any, ok bool) bool { return true }

func TestExecute_ReentrantCallCount(t *testing.T) {
	n := newFake(func(inputs, params map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	})
	n.Execute(n, nil, nil)
	n.status = StatusReady
	n.Execute(n, nil, nil)
	if n.Calls() != 2 {
		t.Fatalf("calls = %d, want 2", n.Calls())
	}
}

func TestStampRevisions_Deterministic(t *testing.T) {
	a := map[string]any{"message": map[string]any{"data": "hi"}}
	b := map[string]any{"message": map[string]any{"data": "hi"}}
	if err := StampRevisions(a); err != nil {
		t.Fatal(err)
	}
	if err := StampRevisions(b); err != nil {
		t.Fatal(err)
	}
	ra := a["message"].(map[string]any)["_meta"].(map[string]any)["revision"]
	rb := b["message"].(map[string]any)["_meta"].(map[string]any)["revision"]
	if ra != rb {
		t.Fatalf("revisions differ for identical content: %v != %v", ra, rb)
	}
}

func TestStampRevisions_PreservesCallerSuppliedRevision(t *testing.T) {
	a := map[string]any{"x": map[string]any{"data": 1, "_meta": map[string]any{"revision": "caller-supplied"}}}
	if err := StampRevisions(a); err != nil {
		t.Fatal(err)
	}
	rev := a["x"].(map[string]any)["_meta"].(map[string]any)["revision"]
	if rev != "caller-supplied" {
		t.Fatalf("revision = %v, want unchanged caller-supplied value", rev)
	}
}

func TestStampRevisions_HashSkipProducesFreshID(t *testing.T) {
	a := map[string]any{"x": map[string]any{"data": 1, "_meta": map[string]any{"hash_skip": true}}}
	b := map[string]any{"x": map[string]any{"data": 1, "_meta": map[string]any{"hash_skip": true}}}
	if err := StampRevisions(a); err != nil {
		t.Fatal(err)
	}
	if err := StampRevisions(b); err != nil {
		t.Fatal(err)
	}
	ra := a["x"].(map[string]any)["_meta"].(map[string]any)["revision"]
	rb := b["x"].(map[string]any)["_meta"].(map[string]any)["revision"]
	if ra == rb {
		t.Fatalf("hash_skip entries should get distinct fresh revisions, got same: %v", ra)
	}
}
