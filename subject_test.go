package pulsefeed

import (
	"sync"
	"testing"
	"time"
)

func TestSubject_GetSetUpdate(t *testing.T) {
	s := NewSubject(1)

	if s.Get() != 1 {
		t.Errorf("Get() = %d, want 1", s.Get())
	}

	s.Set(5)
	if s.Get() != 5 {
		t.Errorf("Get() after Set = %d, want 5", s.Get())
	}

	got := s.Update(func(v int) int { return v * 2 })
	if got != 10 || s.Get() != 10 {
		t.Errorf("Update() = %d, Get() = %d, want 10", got, s.Get())
	}
}

func TestSubject_SubscribeReceivesInOrder(t *testing.T) {
	s := NewSubject("")
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	s.Set("a")
	s.Set("b")
	s.Update(func(v string) string { return v + "c" })

	for _, want := range []string{"a", "b", "bc"} {
		select {
		case got := <-ch:
			if got != want {
				t.Errorf("received %q, want %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("did not receive %q", want)
		}
	}
}

func TestSubject_Unsubscribe(t *testing.T) {
	s := NewSubject(0)
	ch := s.Subscribe()
	s.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}

	// second call and later writes are safe
	s.Unsubscribe(ch)
	s.Set(1)
}

func TestSubject_SlowSubscriberDoesNotBlock(t *testing.T) {
	s := NewSubject(0)
	_ = s.Subscribe() // never read

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			s.Set(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Set() blocked on a slow subscriber")
	}
	if s.Get() != subscriberBuffer*2-1 {
		t.Errorf("Get() = %d, want latest value", s.Get())
	}
}

func TestSubject_ConcurrentAccess(t *testing.T) {
	s := NewSubject(0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Update(func(v int) int { return v + 1 })
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Get()
			}
		}()
		go func() {
			defer wg.Done()
			ch := s.Subscribe()
			time.Sleep(5 * time.Millisecond)
			s.Unsubscribe(ch)
		}()
	}
	wg.Wait()

	if s.Get() != 1000 {
		t.Errorf("Get() = %d, want 1000", s.Get())
	}
}
