// Copyright © 2023 Sloan Childers
package recorder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/metallurk/cctv/base"
	"github.com/rs/zerolog/log"
)

type State int

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "RECORDING"
	}
	return "IDLE"
}

var ErrClosed = errors.New("controller closed")

type Status struct {
	State      string
	LastMotion time.Time `json:",omitempty"`
	Session    string    `json:",omitempty"`
	File       string    `json:",omitempty"`
	Buffered   int
	Capacity   int
}

// Controller owns the pre-roll buffer and the recording state machine.
//
// The capture worker only calls Observe and Push; the drain worker (Run) is the
// only one that pops owed frames and touches the output writers. Every eviction
// or pop decision is made under the same lock as the state, so a state flip can
// never land in the middle of one.
//
// Frames pushed while recording, and the pre-roll present when recording
// starts, are owed to that recording's session. A full buffer evicts its oldest
// frame unless that frame is owed, in which case Push waits for the writer.
// Owed frames sit at the head of the buffer in session order, so a recording
// that starts while the previous one is still draining gets its own session
// and its own file.
type Controller struct {
	name       string
	config     *base.RecordingConfig
	quiet      time.Duration
	open       base.WriterFactory
	ring       *Ring
	state      State
	owed       int
	lastMotion time.Time
	sessions   []*Session
	closed     bool
	listeners  []func(State)
	mutex      sync.Mutex
	cond       *sync.Cond
}

func NewController(config *base.CameraConfig, capacity int, open base.WriterFactory) *Controller {
	x := &Controller{
		name:   config.Name,
		config: config.Recording,
		quiet:  config.Motion.QuietPeriod(),
		open:   open,
		ring:   NewRing(capacity),
	}
	x.cond = sync.NewCond(&x.mutex)
	return x
}

// OnStateChange registers fn to be called from the worker that caused a transition.
func (x *Controller) OnStateChange(fn func(State)) {
	x.mutex.Lock()
	x.listeners = append(x.listeners, fn)
	x.mutex.Unlock()
}

func (x *Controller) State() State {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return x.state
}

func (x *Controller) LastMotion() time.Time {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return x.lastMotion
}

func (x *Controller) Status() Status {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	status := Status{
		State:      x.state.String(),
		LastMotion: x.lastMotion,
		Buffered:   x.ring.Len(),
		Capacity:   x.ring.Cap(),
	}
	if session := x.current(); session != nil {
		status.Session = session.ID
		status.File = session.Path
	}
	return status
}

// current is the newest session; must be called with the lock held.
func (x *Controller) current() *Session {
	if len(x.sessions) == 0 {
		return nil
	}
	return x.sessions[len(x.sessions)-1]
}

// Observe applies one detector result. event.Time is taken as "now", so the
// quiet period is checked once per captured frame.
func (x *Controller) Observe(event base.MotionEvent) State {
	x.mutex.Lock()
	prev := x.state
	if x.closed {
		x.mutex.Unlock()
		return prev
	}
	if event.Motion {
		x.lastMotion = event.Time
		if x.state == Idle {
			// frames already owed belong to a session that is still draining
			session := newSession(event.Time, x.config)
			session.owed = x.ring.Len() - x.owed
			x.owed = x.ring.Len()
			x.sessions = append(x.sessions, session)
			x.state = Recording
			recordingsTotal.Inc()
		}
	} else if x.state == Recording && event.Time.Sub(x.lastMotion) >= x.quiet {
		x.state = Idle
	}
	state := x.state
	var listeners []func(State)
	if state != prev {
		x.cond.Broadcast()
		listeners = append(listeners, x.listeners...)
		session := x.current()
		if state == Recording {
			log.Info().Str("component", "recorder").Str("name", x.name).Str("session", session.ID).Str("file", session.Path).Int("preroll", session.owed).Msg("recording started")
		} else {
			log.Info().Str("component", "recorder").Str("name", x.name).Str("session", session.ID).Msg("recording stopping")
		}
	}
	x.mutex.Unlock()

	if state != prev {
		x.notify(listeners, state)
	}
	return state
}

// Push hands a frame to the buffer; the buffer takes ownership of it.
func (x *Controller) Push(ctx context.Context, frame base.IFrame) error {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	if x.ring.Full() && x.owed > 0 {
		stop := context.AfterFunc(ctx, x.wake)
		defer stop()
		for x.ring.Full() && x.owed > 0 && !x.closed && ctx.Err() == nil {
			x.cond.Wait()
		}
	}
	if x.closed {
		frame.Close()
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		frame.Close()
		return err
	}

	if x.ring.Full() {
		old := x.ring.Pop()
		old.Close()
		framesEvicted.Inc()
	}
	x.ring.Push(frame)
	if x.state == Recording {
		x.owed++
		x.current().owed++
	}
	bufferFrames.Set(float64(x.ring.Len()))
	x.cond.Broadcast()
	return nil
}

// pending reports whether the oldest session has a frame to write or has ended
// and can be closed; must be called with the lock held.
func (x *Controller) pending() bool {
	if len(x.sessions) == 0 {
		return false
	}
	if x.sessions[0].owed > 0 {
		return true
	}
	return len(x.sessions) > 1 || x.state == Idle
}

func (x *Controller) wake() {
	x.mutex.Lock()
	x.cond.Broadcast()
	x.mutex.Unlock()
}

// Run is the drain worker. It writes owed frames oldest first, closes each
// session once it has ended and is fully written, and flushes on cancellation.
func (x *Controller) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, x.wake)
	defer stop()

	for {
		x.mutex.Lock()
		for ctx.Err() == nil && !x.pending() {
			x.cond.Wait()
		}
		if ctx.Err() != nil {
			x.mutex.Unlock()
			x.shutdown()
			return nil
		}
		session := x.sessions[0]
		if session.owed == 0 {
			x.sessions = x.sessions[1:]
			x.mutex.Unlock()
			x.finish(session)
			continue
		}
		frame := x.ring.Pop()
		session.owed--
		x.owed--
		bufferFrames.Set(float64(x.ring.Len()))
		x.cond.Broadcast()
		x.mutex.Unlock()

		x.write(session, frame)
	}
}

// shutdown forces IDLE, writes whatever is still owed and closes every session.
func (x *Controller) shutdown() {
	x.mutex.Lock()
	prev := x.state
	x.state = Idle
	x.closed = true
	owed := make(map[*Session][]base.IFrame, len(x.sessions))
	for _, session := range x.sessions {
		for ; session.owed > 0; session.owed-- {
			owed[session] = append(owed[session], x.ring.Pop())
		}
	}
	x.owed = 0
	sessions := x.sessions
	x.sessions = nil
	listeners := append([]func(State){}, x.listeners...)
	x.cond.Broadcast()
	x.mutex.Unlock()

	for _, session := range sessions {
		for _, frame := range owed[session] {
			x.write(session, frame)
		}
		x.finish(session)
	}
	if prev != Idle {
		x.notify(listeners, Idle)
	}
}

// write consumes frame. Without a writer the frame is dropped and the open is
// retried on the next frame.
func (x *Controller) write(session *Session, frame base.IFrame) {
	defer frame.Close()
	if session.writer == nil {
		writer, err := x.open(session.Path)
		if err != nil {
			writerOpenFailures.Inc()
			framesDropped.Inc()
			session.dropped++
			log.Error().Err(err).Str("component", "recorder").Str("name", x.name).Str("file", session.Path).Msg("open writer")
			return
		}
		session.writer = writer
		log.Info().Str("component", "recorder").Str("name", x.name).Str("session", session.ID).Str("file", session.Path).Msg("writer opened")
	}
	err := session.writer.Write(frame)
	if err != nil {
		framesDropped.Inc()
		session.dropped++
		log.Warn().Err(err).Str("component", "recorder").Str("name", x.name).Str("file", session.Path).Msg("write frame")
		return
	}
	framesWritten.Inc()
	session.written++
}

func (x *Controller) finish(session *Session) {
	msg := "recording ended without a writer"
	if session.writer != nil {
		err := session.writer.Close()
		session.writer = nil
		if err != nil {
			log.Error().Err(err).Str("component", "recorder").Str("name", x.name).Str("file", session.Path).Msg("close writer")
		}
		msg = "recording stopped"
	}
	log.Info().Str("component", "recorder").Str("name", x.name).Str("session", session.ID).
		Str("file", session.Path).Int("frames", session.written).Int("dropped", session.dropped).
		Msg(msg)
}

func (x *Controller) notify(listeners []func(State), state State) {
	if state == Recording {
		recordingState.Set(1)
	} else {
		recordingState.Set(0)
	}
	for _, fn := range listeners {
		fn(state)
	}
}

// Close releases frames left behind once both workers have exited.
func (x *Controller) Close() {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.closed = true
	for _, frame := range x.ring.Drain() {
		frame.Close()
	}
	x.owed = 0
	x.sessions = nil
	bufferFrames.Set(0)
	x.cond.Broadcast()
}
