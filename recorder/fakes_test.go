// Copyright © 2023 Sloan Childers
package recorder

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/metallurk/cctv/base"
	"gocv.io/x/gocv"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// frames counts frames that have been created but not closed.
type frames struct {
	live atomic.Int64
}

type fakeFrame struct {
	id     int
	tm     time.Time
	closed atomic.Bool
	pool   *frames
}

func (x *frames) New(id int, tm time.Time) *fakeFrame {
	x.live.Add(1)
	return &fakeFrame{id: id, tm: tm, pool: x}
}

func (x *fakeFrame) Width() int       { return 64 }
func (x *fakeFrame) Height() int      { return 48 }
func (x *fakeFrame) Empty() bool      { return false }
func (x *fakeFrame) OpenCV() gocv.Mat { return gocv.Mat{} }
func (x *fakeFrame) Time() time.Time  { return x.tm }
func (x *fakeFrame) Clone() base.IFrame {
	return x.pool.New(x.id, x.tm)
}
func (x *fakeFrame) Close() {
	if x.closed.CompareAndSwap(false, true) {
		x.pool.live.Add(-1)
	}
}
func (x *fakeFrame) ToJpeg(quality int) ([]byte, error) {
	return base.EmptyFrame(x.Width(), x.Height()), nil
}

func frameID(frame base.IFrame) int {
	return frame.(*fakeFrame).id
}

// fakeSource produces count frames spaced step apart, then reports exhaustion.
// A negative count never runs out.
type fakeSource struct {
	pool   *frames
	count  int
	step   time.Duration
	rate   float64
	next   int
	closed atomic.Bool
	mutex  sync.Mutex
}

func (x *fakeSource) Open() error { return nil }

func (x *fakeSource) Read() (base.IFrame, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	if x.count >= 0 && x.next >= x.count {
		return nil, fmt.Errorf("fake: %w", base.ErrSourceExhausted)
	}
	if x.count < 0 {
		time.Sleep(time.Millisecond)
	}
	frame := x.pool.New(x.next, epoch.Add(time.Duration(x.next)*x.step))
	x.next++
	return frame, nil
}

func (x *fakeSource) Properties() base.Properties {
	return base.Properties{Rate: x.rate, Width: 64, Height: 48}
}

func (x *fakeSource) Close() error {
	x.closed.Store(true)
	return nil
}

// fakeMotion reports motion for the frame ids in moving.
type fakeMotion struct {
	moving     map[int]bool
	ready      bool
	references []int
	masks      [][]base.Rect
	closed     bool
	mutex      sync.Mutex
}

func (x *fakeMotion) Detect(frame base.IFrame) base.MotionEvent {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return base.MotionEvent{Motion: x.moving[frameID(frame)], Time: frame.Time()}
}

func (x *fakeMotion) SetReference(frame base.IFrame) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.ready = true
	x.references = append(x.references, frameID(frame))
}

func (x *fakeMotion) SetMasks(masks []base.Rect) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.masks = append(x.masks, masks)
}

func (x *fakeMotion) Ready() bool {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return x.ready
}

func (x *fakeMotion) Close() {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.closed = true
}

type fakeDecorator struct {
	decorated atomic.Int32
	masks     atomic.Int32
}

func (x *fakeDecorator) Annotate(frame base.IFrame) base.IFrame {
	return frame.Clone()
}

func (x *fakeDecorator) Decorate(frame base.IFrame, event base.MotionEvent, masks []base.Rect, recording bool) base.IFrame {
	x.decorated.Add(1)
	x.masks.Store(int32(len(masks)))
	return frame.Clone()
}

// fakeOutput records every file opened through its factory.
type fakeOutput struct {
	failures int
	opens    int
	paths    []string
	written  []int
	closes   int
	mutex    sync.Mutex
}

var errOpen = errors.New("codec unavailable")

func (x *fakeOutput) Open(path string) (base.IWriter, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.opens++
	if x.failures > 0 {
		x.failures--
		return nil, fmt.Errorf("%s: %w: %w", path, base.ErrWriterOpen, errOpen)
	}
	x.paths = append(x.paths, path)
	return &fakeWriter{output: x}, nil
}

func (x *fakeOutput) Written() []int {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return append([]int{}, x.written...)
}

func (x *fakeOutput) Closes() int {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return x.closes
}

type fakeWriter struct {
	output *fakeOutput
}

func (x *fakeWriter) Write(frame base.IFrame) error {
	x.output.mutex.Lock()
	defer x.output.mutex.Unlock()
	x.output.written = append(x.output.written, frameID(frame))
	return nil
}

func (x *fakeWriter) Close() error {
	x.output.mutex.Lock()
	defer x.output.mutex.Unlock()
	x.output.closes++
	return nil
}

func testConfig(t *testing.T, before, after int) *base.CameraConfig {
	config := &base.CameraConfig{
		Name:      "Test",
		Motion:    &base.MotionConfig{Enabled: true, BeforeSeconds: before, AfterSeconds: after},
		Recording: &base.RecordingConfig{Dir: t.TempDir()},
		Snapshot:  &base.SnapshotConfig{Dir: t.TempDir()},
	}
	config.SetDefaults()
	return config
}

func ids(from, to int) []int {
	out := []int{}
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
