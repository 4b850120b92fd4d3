// Copyright © 2023 Sloan Childers
package recorder

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/google/renameio/v2"
	"github.com/metallurk/cctv/base"
	"github.com/metallurk/cctv/sink"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Camera wires the capture and drain workers together and exposes the
// operator entry points.
type Camera struct {
	config     *base.CameraConfig
	source     base.ISource
	motion     base.IMotion
	masks      *base.MaskSet
	controller *Controller
	pipeline   *Pipeline
	gps        *base.GPS
	cancel     context.CancelFunc
	group      *errgroup.Group
}

// NewCamera expects an opened source; the pre-roll holds BeforeSeconds of frames at the source rate.
func NewCamera(config *base.CameraConfig, source base.ISource, motion base.IMotion, decorator base.IDecorator, open base.WriterFactory) *Camera {
	rate := source.Properties().Rate
	if rate <= 0 {
		rate = float64(config.Rate)
	}
	masks := base.NewMaskSet(config.Motion.Mask...)
	controller := NewController(config, Capacity(rate, config.Motion.BeforeSeconds), open)
	x := &Camera{
		config:     config,
		source:     source,
		motion:     motion,
		masks:      masks,
		controller: controller,
		pipeline:   NewPipeline(config, source, motion, decorator, controller, masks),
	}
	motion.SetMasks(masks.ListAll())
	return x
}

func (x *Camera) SetGPS(gps *base.GPS) {
	x.gps = gps
}

func (x *Camera) OnStateChange(fn func(State)) {
	x.controller.OnStateChange(fn)
}

// Start launches both workers. A source failure cancels the other worker.
func (x *Camera) Start(ctx context.Context) {
	ctx, x.cancel = context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return x.pipeline.Run(gctx)
	})
	group.Go(func() error {
		return x.controller.Run(gctx)
	})
	x.group = group
	log.Info().Str("component", "camera").Str("name", x.config.Name).Int("preroll", x.controller.ring.Cap()).Msg("started")
}

// RequestStop signals both workers; they finish the current iteration and exit.
func (x *Camera) RequestStop() {
	if x.cancel != nil {
		x.cancel()
	}
}

// Wait blocks until both workers have exited and returns the capture error, if any.
func (x *Camera) Wait() error {
	if x.group == nil {
		return nil
	}
	return x.group.Wait()
}

// Close stops both workers, waits for them, then releases the device and every frame still held.
func (x *Camera) Close() {
	x.RequestStop()
	x.Wait()
	x.source.Close()
	x.controller.Close()
	x.pipeline.Close()
	x.motion.Close()
	if x.gps != nil {
		x.gps.Close()
	}
}

func (x *Camera) State() State {
	return x.controller.State()
}

func (x *Camera) Status() Status {
	return x.controller.Status()
}

func (x *Camera) Recalibrate() {
	log.Info().Str("component", "camera").Str("name", x.config.Name).Msg("recalibrate")
	x.pipeline.Recalibrate()
}

// AddMask normalizes and stores rect, then refreshes the masked reference.
func (x *Camera) AddMask(rect base.Rect) base.Rect {
	rect = x.masks.Add(rect)
	x.motion.SetMasks(x.masks.ListAll())
	log.Info().Str("component", "camera").Str("name", x.config.Name).Interface("mask", rect).Msg("mask added")
	return rect
}

// RemoveMaskAt erases every mask under p.
func (x *Camera) RemoveMaskAt(p image.Point) int {
	removed := x.masks.RemoveContaining(p)
	if removed > 0 {
		x.motion.SetMasks(x.masks.ListAll())
	}
	log.Info().Str("component", "camera").Str("name", x.config.Name).Int("removed", removed).Int("x", p.X).Int("y", p.Y).Msg("masks removed")
	return removed
}

func (x *Camera) Masks() []base.Rect {
	return x.masks.ListAll()
}

func (x *Camera) SetMasks(masks []base.Rect) {
	x.masks.Replace(masks)
	x.motion.SetMasks(x.masks.ListAll())
}

func (x *Camera) LoadMasks(fileName string) error {
	masks := []base.Rect{}
	err := sink.LoadJson(fileName, &masks)
	if err != nil {
		return err
	}
	x.SetMasks(masks)
	log.Info().Str("component", "camera").Str("name", x.config.Name).Str("file", fileName).Int("masks", len(masks)).Msg("masks loaded")
	return nil
}

func (x *Camera) SaveMasks(fileName string) error {
	return sink.SaveJson(fileName, x.masks.ListAll())
}

func (x *Camera) SetEditMode(on bool) {
	x.pipeline.editMode.Store(on)
}

func (x *Camera) EditMode() bool {
	return x.pipeline.editMode.Load()
}

// Latest returns a copy of the current display frame; the caller closes it.
func (x *Camera) Latest() (base.IFrame, error) {
	return x.pipeline.Latest()
}

func (x *Camera) LastEvent() base.MotionEvent {
	return x.pipeline.LastEvent()
}

// Jpeg encodes the current display frame, tagged with the camera and its position.
func (x *Camera) Jpeg() ([]byte, time.Time, error) {
	frame, err := x.Latest()
	if err != nil {
		return nil, time.Time{}, err
	}
	defer frame.Close()
	jpeg, err := frame.ToJpeg(x.config.Snapshot.Quality)
	if err != nil {
		return nil, time.Time{}, err
	}
	var gpsInfo *base.ExifInfo
	if x.gps != nil {
		gpsInfo = x.gps.ToExif()
	}
	host, _ := os.Hostname()
	meta := base.ExifMeta{
		Artist: x.config.Name,
		Make:   "cctv",
		Model:  x.config.Plugin,
		Host:   host,
		Time:   frame.Time(),
	}
	tagged, err := base.WriteExif(meta, gpsInfo, jpeg)
	if err != nil {
		log.Warn().Err(err).Str("component", "camera").Str("name", x.config.Name).Msg("exif")
		tagged = jpeg
	}
	return tagged, frame.Time(), nil
}

// Snapshot writes the current display frame as <label>__DD_MM_YYYY_HH-MM-SS.jpg.
func (x *Camera) Snapshot(label string) (string, error) {
	jpeg, tm, err := x.Jpeg()
	if err != nil {
		return "", err
	}
	fileName := base.SnapshotName(x.config.Snapshot.Dir, label, tm)
	err = renameio.WriteFile(fileName, jpeg, 0644)
	if err != nil {
		return "", fmt.Errorf("snapshot %s: %w", fileName, err)
	}
	log.Info().Str("component", "camera").Str("name", x.config.Name).Str("file", fileName).Msg("snapshot")
	return fileName, nil
}
