package app

import (
	"testing"
	"time"
)

func receive(t *testing.T, a *ActiveSet) streamEvent {
	t.Helper()
	select {
	case se := <-a.events():
		return se
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for merged event")
		return streamEvent{}
	}
}

func TestActiveSet_AddRemove(t *testing.T) {
	a := NewActiveSet()
	defer a.Close()

	s1 := newFakeStream("s1", "ls")
	s2 := newFakeStream("s2", "cat")
	a.Add(s1)
	a.Add(s2)
	a.Add(s1)

	if a.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", a.Len())
	}
	if len(a.order) != 2 || a.order[0] != "s1" || a.order[1] != "s2" {
		t.Errorf("insertion order = %v", a.order)
	}

	a.Remove("s1")
	if _, ok := a.streams["s2"]; !ok || len(a.order) != 1 || a.order[0] != "s2" {
		t.Error("Remove() dropped the wrong stream")
	}
	if !s1.released.Load() || s2.released.Load() {
		t.Error("Remove() should release only the removed stream")
	}
	a.Remove("missing")
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1", a.Len())
	}
}

func TestActiveSet_PreservesPerStreamOrder(t *testing.T) {
	a := NewActiveSet()
	defer a.Close()

	s1 := newFakeStream("s1", "a")
	s2 := newFakeStream("s2", "b")
	a.Add(s1)
	a.Add(s2)

	for _, chunk := range []string{"1", "2", "3"} {
		s1.output("a" + chunk)
		s2.output("b" + chunk)
	}

	got := map[string][]string{}
	for i := 0; i < 6; i++ {
		se := receive(t, a)
		got[se.stream.ID()] = append(got[se.stream.ID()], string(se.event.Data))
	}

	for id, want := range map[string][]string{"s1": {"a1", "a2", "a3"}, "s2": {"b1", "b2", "b3"}} {
		if len(got[id]) != len(want) {
			t.Fatalf("%s events = %q, want %q", id, got[id], want)
		}
		for i := range want {
			if got[id][i] != want[i] {
				t.Errorf("%s event %d = %q, want %q", id, i, got[id][i], want[i])
			}
		}
	}
}

func TestActiveSet_AddWhileWaiting(t *testing.T) {
	a := NewActiveSet()
	defer a.Close()

	got := make(chan streamEvent, 1)
	go func() { got <- <-a.events() }()

	s := newFakeStream("late", "echo")
	a.Add(s)
	s.output("hi")

	select {
	case se := <-got:
		if se.stream.ID() != "late" || string(se.event.Data) != "hi" {
			t.Errorf("event = %+v", se)
		}
	case <-time.After(testTimeout):
		t.Fatal("stream added while waiting was not observed")
	}
}

func TestActiveSet_CloseDoesNotWaitForStreams(t *testing.T) {
	a := NewActiveSet()

	// Neither stream ever closes its channel; one has an undelivered event.
	idle := newFakeStream("idle", "sleep")
	busy := newFakeStream("busy", "yes")
	a.Add(idle)
	a.Add(busy)
	busy.output("y")

	done := make(chan struct{})
	go func() {
		a.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("Close() blocked on running streams")
	}

	if !idle.released.Load() || !busy.released.Load() {
		t.Error("Close() should release every member")
	}
	if a.Len() != 0 {
		t.Errorf("Len() = %d after Close, want 0", a.Len())
	}
	a.Close()
}

func TestActiveSet_AddAfterClose(t *testing.T) {
	a := NewActiveSet()
	a.Close()

	s := newFakeStream("s", "ls")
	a.Add(s)
	if a.Len() != 0 {
		t.Error("Add() after Close should not insert")
	}
	if !s.released.Load() {
		t.Error("Add() after Close should release the stream")
	}
}
