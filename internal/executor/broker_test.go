package executor_test

import (
	"testing"

	"github.com/agthegodyt04-cmyk/clipper/internal/executor"
)

func TestBrokerSingleSubscriber(t *testing.T) {
	b := executor.NewBroker()
	ch, unsub := b.Subscribe("j1")
	defer unsub()

	stages := []string{"scene_1", "scene_2", "encoding"}
	for i, s := range stages {
		b.Publish(executor.Event{JobID: "j1", Status: "running", Stage: s, Progress: (i + 1) * 25})
	}
	b.Close("j1")

	var got []executor.Event
	for ev := range ch {
		got = append(got, ev)
	}

	if len(got) != len(stages) {
		t.Fatalf("got %d events, want %d", len(got), len(stages))
	}
	for i, ev := range got {
		if ev.Stage != stages[i] {
			t.Errorf("event[%d].Stage = %q, want %q", i, ev.Stage, stages[i])
		}
	}
}

func TestBrokerMultipleSubscribers(t *testing.T) {
	b := executor.NewBroker()
	ch1, unsub1 := b.Subscribe("j1")
	defer unsub1()
	ch2, unsub2 := b.Subscribe("j1")
	defer unsub2()

	b.Publish(executor.Event{JobID: "j1", Status: "done", Progress: 100})
	b.Close("j1")

	var got1, got2 []executor.Event
	for ev := range ch1 {
		got1 = append(got1, ev)
	}
	for ev := range ch2 {
		got2 = append(got2, ev)
	}

	if len(got1) != 1 || got1[0].Status != "done" {
		t.Errorf("subscriber 1 got %v, want one done event", got1)
	}
	if len(got2) != 1 || got2[0].Status != "done" {
		t.Errorf("subscriber 2 got %v, want one done event", got2)
	}
}

func TestBrokerCloseClosesChannels(t *testing.T) {
	b := executor.NewBroker()
	ch, unsub := b.Subscribe("j1")
	defer unsub()

	b.Close("j1")

	_, ok := <-ch
	if ok {
		t.Error("channel should be closed after Close()")
	}
}

func TestBrokerLateSubscriberGetsClosed(t *testing.T) {
	b := executor.NewBroker()
	b.Publish(executor.Event{JobID: "j1", Status: "running"})
	b.Close("j1")

	// Subscribe after Close — should get a closed channel.
	ch, unsub := b.Subscribe("j1")
	defer unsub()

	_, ok := <-ch
	if ok {
		t.Error("late subscriber should get a closed channel")
	}
}

func TestBrokerUnsubscribeStopsDelivery(t *testing.T) {
	b := executor.NewBroker()
	ch, unsub := b.Subscribe("j1")
	unsub()

	b.Publish(executor.Event{JobID: "j1", Status: "running"})
	b.Close("j1")

	select {
	case ev, ok := <-ch:
		if ok {
			t.Errorf("got unexpected event %v after unsubscribe", ev)
		}
	default:
		// No data — expected.
	}
}

func TestBrokerPublishToUnknownJobIsNoop(t *testing.T) {
	b := executor.NewBroker()
	// Should not panic.
	b.Publish(executor.Event{JobID: "nonexistent", Status: "running"})
	b.Close("nonexistent")
}

func TestBrokerLateSubscriberMissesEarlierEvents(t *testing.T) {
	b := executor.NewBroker()
	ch1, unsub1 := b.Subscribe("j1")
	defer unsub1()

	b.Publish(executor.Event{JobID: "j1", Status: "running", Progress: 10})

	ch2, unsub2 := b.Subscribe("j1")
	defer unsub2()

	b.Publish(executor.Event{JobID: "j1", Status: "running", Progress: 50})
	b.Close("j1")

	var got1, got2 []executor.Event
	for ev := range ch1 {
		got1 = append(got1, ev)
	}
	for ev := range ch2 {
		got2 = append(got2, ev)
	}

	if len(got1) != 2 {
		t.Errorf("subscriber 1 got %d events, want 2", len(got1))
	}
	if len(got2) != 1 || got2[0].Progress != 50 {
		t.Errorf("late subscriber got %v, want only the second event", got2)
	}
}
