// Copyright © 2023 Sloan Childers
package recorder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/metallurk/cctv/base"
	"github.com/rs/zerolog/log"
)

// Pipeline is the capture worker: read, detect, annotate, publish, push.
type Pipeline struct {
	config      *base.CameraConfig
	source      base.ISource
	motion      base.IMotion
	decorator   base.IDecorator
	controller  *Controller
	masks       *base.MaskSet
	editMode    atomic.Bool
	recalibrate atomic.Bool
	latest      base.IFrame
	event       base.MotionEvent
	mutex       sync.Mutex
}

func NewPipeline(config *base.CameraConfig, source base.ISource, motion base.IMotion, decorator base.IDecorator, controller *Controller, masks *base.MaskSet) *Pipeline {
	return &Pipeline{
		config:     config,
		source:     source,
		motion:     motion,
		decorator:  decorator,
		controller: controller,
		masks:      masks,
	}
}

// Recalibrate asks for the next captured frame to become the reference.
func (x *Pipeline) Recalibrate() {
	x.recalibrate.Store(true)
}

// Run returns nil on cancellation and the source error when capture fails.
func (x *Pipeline) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		err := x.step(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrClosed) {
				return nil
			}
			log.Error().Err(err).Str("component", "pipeline").Str("name", x.config.Name).Msg("capture stopped")
			return err
		}
	}
	return nil
}

func (x *Pipeline) step(ctx context.Context) error {
	raw, err := x.source.Read()
	if err != nil {
		return err
	}
	defer raw.Close()
	framesCaptured.Inc()

	if x.recalibrate.Swap(false) || !x.motion.Ready() {
		x.motion.SetReference(raw)
	}

	event := base.MotionEvent{Time: raw.Time()}
	if x.config.Motion.Enabled {
		event = x.motion.Detect(raw)
	}
	if event.Motion {
		motionEvents.Inc()
	}
	state := x.controller.Observe(event)

	annotated := x.decorator.Annotate(raw)
	x.publish(annotated, event, state)
	return x.controller.Push(ctx, annotated)
}

// publish swaps in the display frame; readers only ever get clones of it.
func (x *Pipeline) publish(annotated base.IFrame, event base.MotionEvent, state State) {
	var display base.IFrame
	if x.config.Motion.Decorate || x.editMode.Load() {
		var masks []base.Rect
		if x.editMode.Load() {
			masks = x.masks.ListAll()
		}
		if !x.config.Motion.Decorate {
			event.Boxes = nil
		}
		display = x.decorator.Decorate(annotated, event, masks, state == Recording)
	} else {
		display = annotated.Clone()
	}

	x.mutex.Lock()
	old := x.latest
	x.latest = display
	x.event = event
	x.mutex.Unlock()
	if old != nil {
		old.Close()
	}
}

// Latest returns a copy of the most recent display frame; the caller closes it.
func (x *Pipeline) Latest() (base.IFrame, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	if x.latest == nil {
		return nil, base.ErrNoFrame
	}
	return x.latest.Clone(), nil
}

func (x *Pipeline) LastEvent() base.MotionEvent {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return x.event
}

func (x *Pipeline) Close() {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	if x.latest != nil {
		x.latest.Close()
		x.latest = nil
	}
}
