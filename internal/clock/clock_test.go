package clock

import (
	"testing"
	"time"
)

func TestRealAfterFuncStop(t *testing.T) {
	fired := make(chan struct{}, 1)
	timer := Real().AfterFunc(time.Hour, func() { fired <- struct{}{} })
	if !timer.Stop() {
		t.Fatalf("expected pending timer to stop")
	}
	select {
	case <-fired:
		t.Fatalf("stopped timer fired")
	default:
	}
}

func TestRealAfterFuncFires(t *testing.T) {
	fired := make(chan struct{}, 1)
	Real().AfterFunc(time.Millisecond, func() { fired <- struct{}{} })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not fire")
	}
}
