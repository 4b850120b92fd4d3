// Copyright © 2023 Sloan Childers
package base

import (
	"encoding/json"
	"image"
	"time"

	"gocv.io/x/gocv"
)

type CameraConfig struct {
	Name      string
	Plugin    string
	Device    int
	Width     int
	Height    int
	Rate      float32
	Flip      bool
	Motion    *MotionConfig
	Recording *RecordingConfig
	Snapshot  *SnapshotConfig
	GPS       *GPSConfig       `json:"GPS,omitempty"`
	Indicator *IndicatorConfig `json:"Indicator,omitempty"`
}

type MotionConfig struct {
	Enabled   bool
	Area      float64
	Threshold int
	Blur      int
	Dilate    int
	Mask      []Rect
	// pre-roll length and quiet period
	BeforeSeconds int
	AfterSeconds  int
	Decorate      bool
}

type RecordingConfig struct {
	Dir   string
	Codec string
	Ext   string
}

type SnapshotConfig struct {
	Dir     string
	Quality int
}

type GPSConfig struct {
	Device string
	Baud   int
	Rate   int
}

type IndicatorConfig struct {
	Pin int
}

// SetDefaults fills every zero field with the value the recorder was tuned for.
func (x *CameraConfig) SetDefaults() {
	if x.Name == "" {
		x.Name = "Camera 1"
	}
	if x.Plugin == "" {
		x.Plugin = "opencv"
	}
	if x.Rate <= 0 {
		x.Rate = 20
	}
	if x.Motion == nil {
		x.Motion = &MotionConfig{Enabled: true}
	}
	if x.Motion.Area <= 0 {
		x.Motion.Area = 500
	}
	if x.Motion.Threshold <= 0 {
		x.Motion.Threshold = 25
	}
	if x.Motion.Blur <= 0 {
		x.Motion.Blur = 21
	}
	// GaussianBlur only accepts odd kernels
	if x.Motion.Blur%2 == 0 {
		x.Motion.Blur++
	}
	if x.Motion.Dilate <= 0 {
		x.Motion.Dilate = 2
	}
	if x.Motion.BeforeSeconds <= 0 {
		x.Motion.BeforeSeconds = 300
	}
	if x.Motion.AfterSeconds <= 0 {
		x.Motion.AfterSeconds = 5
	}
	if x.Recording == nil {
		x.Recording = &RecordingConfig{}
	}
	if x.Recording.Dir == "" {
		x.Recording.Dir = "."
	}
	if x.Recording.Codec == "" {
		x.Recording.Codec = "XVID"
	}
	if x.Recording.Ext == "" {
		x.Recording.Ext = ".avi"
	}
	if x.Snapshot == nil {
		x.Snapshot = &SnapshotConfig{}
	}
	if x.Snapshot.Dir == "" {
		x.Snapshot.Dir = "."
	}
	if x.Snapshot.Quality <= 0 {
		x.Snapshot.Quality = 90
	}
}

// UnmarshalJSON leaves detection enabled unless "Enabled" is explicitly false.
func (x *MotionConfig) UnmarshalJSON(data []byte) error {
	type plain MotionConfig
	out := plain{Enabled: true}
	err := json.Unmarshal(data, &out)
	if err != nil {
		return err
	}
	*x = MotionConfig(out)
	return nil
}

func (x *MotionConfig) QuietPeriod() time.Duration {
	return time.Duration(x.AfterSeconds) * time.Second
}

// Properties are queried once from the source at startup.
type Properties struct {
	Rate   float64
	Width  int
	Height int
}

type MotionEvent struct {
	Motion bool
	Boxes  []image.Rectangle
	Time   time.Time
}

type IFrame interface {
	Width() int
	Height() int
	Empty() bool
	Close()
	// OpenCV exposes the pixels; callers must not modify them.
	OpenCV() gocv.Mat
	Clone() IFrame
	Time() time.Time
	ToJpeg(quality int) ([]byte, error)
}

type ISource interface {
	Open() error
	Read() (IFrame, error)
	Properties() Properties
	Close() error
}

type IMotion interface {
	Detect(frame IFrame) MotionEvent
	SetReference(frame IFrame)
	SetMasks(masks []Rect)
	Ready() bool
	Close()
}

type IWriter interface {
	Write(frame IFrame) error
	Close() error
}

// WriterFactory opens a new output file at path.
type WriterFactory func(path string) (IWriter, error)

type IDecorator interface {
	// Annotate returns a labelled copy of the raw frame.
	Annotate(frame IFrame) IFrame
	// Decorate returns a copy of frame with motion boxes, masks and the recording marker.
	Decorate(frame IFrame, event MotionEvent, masks []Rect, recording bool) IFrame
}

type IIndicator interface {
	Set(on bool)
	Close()
}
