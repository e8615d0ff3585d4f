package ptyhost

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

type bufSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *bufSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *bufSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSpawn_EchoOutputReachesSink(t *testing.T) {
	sink := &bufSink{}
	p, err := Spawn("/bin/sh", []string{"-c", "echo hello-scarab"}, nil, "", 80, 24, sink)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	defer p.Close()

	waitFor(t, 3*time.Second, func() bool {
		return bytes.Contains([]byte(sink.String()), []byte("hello-scarab"))
	})
}

func TestSpawn_OnExitCalledOnChildExit(t *testing.T) {
	sink := &bufSink{}
	p, err := Spawn("/bin/sh", []string{"-c", "exit 0"}, nil, "", 80, 24, sink)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	defer p.Close()

	done := make(chan struct{})
	p.OnExit(func(err error) { close(done) })

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("OnExit callback not invoked")
	}
}

func TestWriteInput_DeliversToChildStdin(t *testing.T) {
	sink := &bufSink{}
	p, err := Spawn("/bin/cat", nil, nil, "", 80, 24, sink)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	defer p.Close()

	p.WriteInput([]byte("ping\n"))

	waitFor(t, 3*time.Second, func() bool {
		return bytes.Contains([]byte(sink.String()), []byte("ping"))
	})
}

type panicSink struct{}

func (panicSink) Write(p []byte) (int, error) {
	panic("boom")
}

// TestSpawn_SinkPanicEndsSessionWithoutCrashingProcess guards the
// readerLoop recover: a sink panic (e.g. a resize request overrunning the
// shared grid's mmap) must end only this one PTY's session via OnExit,
// not take down the whole test binary.
func TestSpawn_SinkPanicEndsSessionWithoutCrashingProcess(t *testing.T) {
	p, err := Spawn("/bin/sh", []string{"-c", "echo trigger"}, nil, "", 80, 24, panicSink{})
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	defer p.Close()

	done := make(chan error, 1)
	p.OnExit(func(err error) { done <- err })

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected a non-nil error recovered from the sink panic")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("OnExit not invoked after sink panic")
	}
}

func TestMergeEnv_OverridesWinOverInherited(t *testing.T) {
	base := []string{"FOO=old", "BAR=keep"}
	merged := mergeEnv(base, map[string]string{"FOO": "new"})

	var sawFooNew, sawBar bool
	for _, kv := range merged {
		switch kv {
		case "FOO=new":
			sawFooNew = true
		case "BAR=keep":
			sawBar = true
		case "FOO=old":
			t.Fatal("old FOO value should have been dropped")
		}
	}
	if !sawFooNew || !sawBar {
		t.Fatalf("unexpected merged env: %v", merged)
	}
}
