package server

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

type fakeComponent struct {
	name     string
	rec      *recorder
	startErr error
}

func (f *fakeComponent) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.rec.add("start " + f.name)
	return nil
}

func (f *fakeComponent) Stop(context.Context) error {
	f.rec.add("stop " + f.name)
	return nil
}

func TestRunOrdersStartAndStop(t *testing.T) {
	rec := &recorder{}
	stopped := make(chan struct{})
	app := New(nil, time.Second).
		Add("queue", &fakeComponent{name: "queue", rec: rec}).
		Add("missing", nil).
		Add("http", &fakeComponent{name: "http", rec: rec}).
		Background(func(stop <-chan struct{}) {
			<-stop
			close(stopped)
		}).
		OnShutdown("flush", func(context.Context) error {
			rec.add("drain")
			return nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"start queue", "start http", "stop http", "stop queue", "drain"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
	select {
	case <-stopped:
	default:
		t.Error("background loop was not stopped")
	}
}

func TestRunStopsStartedComponentsOnFailure(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("port in use")
	app := New(nil, time.Second).
		Add("queue", &fakeComponent{name: "queue", rec: rec}).
		Add("http", &fakeComponent{name: "http", rec: rec, startErr: boom})

	err := app.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
	want := []string{"start queue", "stop queue"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}
