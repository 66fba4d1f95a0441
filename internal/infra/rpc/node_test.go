package rpc

import (
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
)

type fakeSub struct {
	errs     chan error
	unsubbed int
}

func (f *fakeSub) Unsubscribe() {
	f.unsubbed++
}

func (f *fakeSub) Err() <-chan error { return f.errs }

func TestLogSubscription_DeliversLogsInOrder(t *testing.T) {
	logs := make(chan types.Log, 3)
	sub := NewLogSubscription(logs, &fakeSub{errs: make(chan error)})

	for i := uint(0); i < 3; i++ {
		logs <- types.Log{Index: i}
	}
	close(logs)

	var got []uint
	for l := range sub.Logs() {
		got = append(got, l.Index)
	}

	if len(got) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(got))
	}
	for i, idx := range got {
		if idx != uint(i) {
			t.Errorf("expected log %d at position %d, got %d", i, i, idx)
		}
	}
}

func TestLogSubscription_UnsubscribePropagates(t *testing.T) {
	fake := &fakeSub{errs: make(chan error)}
	sub := NewLogSubscription(make(chan types.Log), fake)

	sub.Unsubscribe()

	if fake.unsubbed != 1 {
		t.Errorf("expected exactly one upstream unsubscribe, got %d", fake.unsubbed)
	}
}

func TestLogSubscription_ErrSurfacesUpstreamError(t *testing.T) {
	errs := make(chan error, 1)
	sub := NewLogSubscription(make(chan types.Log), &fakeSub{errs: errs})

	want := errTest
	errs <- want

	if got := <-sub.Err(); got != want {
		t.Errorf("expected upstream error %v, got %v", want, got)
	}
}

var errTest = &testError{}

type testError struct{}

func (*testError) Error() string { return "test error" }
