// Copyright © 2023 Sloan Childers
package sink

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"
)

// ShutdownHandler runs its listeners once, on SIGINT/SIGTERM or Trigger.
type ShutdownHandler struct {
	listeners []func()
	signals   chan os.Signal
	once      sync.Once
	mutex     sync.Mutex
}

func NewShutdownHandler() *ShutdownHandler {
	return &ShutdownHandler{signals: make(chan os.Signal, 1)}
}

func (x *ShutdownHandler) AddListener(fn func()) {
	x.mutex.Lock()
	x.listeners = append(x.listeners, fn)
	x.mutex.Unlock()
}

func (x *ShutdownHandler) Listen() {
	signal.Notify(x.signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig, ok := <-x.signals
		if !ok {
			return
		}
		log.Info().Str("component", "shutdown").Str("signal", sig.String()).Msg("shutting down")
		x.Trigger()
	}()
}

func (x *ShutdownHandler) Trigger() {
	x.once.Do(func() {
		signal.Stop(x.signals)
		x.mutex.Lock()
		listeners := append([]func(){}, x.listeners...)
		x.mutex.Unlock()
		for _, fn := range listeners {
			fn()
		}
	})
}
