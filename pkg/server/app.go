package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	applogger "SignalEngine/pkg/logger"
)

// Component is a long-running part of the process: HTTP server, Kafka
// consumer, queue workers.
type Component interface {
	Start() error
	Stop(ctx context.Context) error
}

type namedComponent struct {
	name string
	c    Component
}

type drain struct {
	name string
	fn   func(ctx context.Context) error
}

// App encapsulates the application lifecycle. Components start in the
// order they were added and stop in reverse; background loops get a stop
// channel; drains run last, after every component has stopped.
type App struct {
	log             *applogger.Logger
	shutdownTimeout time.Duration
	components      []namedComponent
	background      []func(stop <-chan struct{})
	drains          []drain
}

func New(l *applogger.Logger, shutdownTimeout time.Duration) *App {
	if l == nil {
		l = applogger.Nop()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	return &App{log: l.Component("app"), shutdownTimeout: shutdownTimeout}
}

// Add registers a component. A nil component is ignored so optional
// infrastructure can be passed straight through.
func (a *App) Add(name string, c Component) *App {
	if c != nil {
		a.components = append(a.components, namedComponent{name: name, c: c})
	}
	return a
}

// Background registers a loop that must return once stop is closed.
func (a *App) Background(fn func(stop <-chan struct{})) *App {
	a.background = append(a.background, fn)
	return a
}

// OnShutdown registers work to finish after components have stopped.
func (a *App) OnShutdown(name string, fn func(ctx context.Context) error) *App {
	a.drains = append(a.drains, drain{name: name, fn: fn})
	return a
}

// Run starts everything and blocks until ctx is cancelled, then shuts down
// within the shutdown timeout. A failing start stops what already started.
func (a *App) Run(ctx context.Context) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for _, fn := range a.background {
		wg.Add(1)
		go func(fn func(<-chan struct{})) {
			defer wg.Done()
			fn(stop)
		}(fn)
	}

	started := 0
	var startErr error
	for _, nc := range a.components {
		if err := nc.c.Start(); err != nil {
			startErr = fmt.Errorf("start %s: %w", nc.name, err)
			break
		}
		a.log.Info("component started", applogger.String("component", nc.name))
		started++
	}

	if startErr == nil {
		<-ctx.Done()
		a.log.Info("shutdown signal received")
	} else {
		a.log.Error("startup failed", applogger.Error(startErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	errs := []error{startErr}
	for i := started - 1; i >= 0; i-- {
		nc := a.components[i]
		if err := nc.c.Stop(shutdownCtx); err != nil {
			a.log.Warn("component stop error", applogger.String("component", nc.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", nc.name, err))
		}
	}
	close(stop)
	wg.Wait()

	for _, d := range a.drains {
		if err := d.fn(shutdownCtx); err != nil {
			a.log.Warn("shutdown drain error", applogger.String("drain", d.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("drain %s: %w", d.name, err))
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
