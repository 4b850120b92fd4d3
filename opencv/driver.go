// Copyright © 2023 Sloan Childers
package opencv

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/blackjack/webcam"
	"github.com/metallurk/cctv/base"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// "plugin": "opencv",
// "device": 0,
// "name": "Camera 1",
// "width": 640,
// "height": 480,
// "rate": 20,

type Driver struct {
	config *base.CameraConfig
	webcam *gocv.VideoCapture
	props  base.Properties
	mutex  sync.Mutex
}

func NewDriver(config *base.CameraConfig) base.ISource {
	return &Driver{config: config}
}

func (x *Driver) ListFormatsAndFrameSizes() base.Formats {
	formats := base.Formats{}
	webcam, err := webcam.Open(fmt.Sprintf("/dev/video%d", x.config.Device))
	if err != nil {
		log.Error().Err(err).Str("component", "driver").Str("name", x.config.Name).Int("device", x.config.Device).Msg("webcam.Open")
		return formats
	}
	defer webcam.Close()
	format_desc := webcam.GetSupportedFormats()
	for formatObj, formatStr := range format_desc {
		format := base.Format{Name: formatStr}
		sizes := []base.Size{}
		fs := base.FrameSizes(webcam.GetSupportedFrameSizes(formatObj))
		sort.Sort(fs)
		for _, frameSize := range fs {
			sizes = append(sizes, base.Size{Size: frameSize.GetString()})
		}
		format.Sizes = sizes
		formats.Formats = append(formats.Formats, format)
	}
	return formats
}

func (x *Driver) Open() error {
	var err error
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.webcam, err = gocv.VideoCaptureDevice(x.config.Device)
	if err != nil {
		log.Error().Err(err).Str("component", "driver").Str("name", x.config.Name).Int("device", x.config.Device).Msg("webcam.VideoCaptureDevice")
		return err
	}
	if x.config.Width > 0 && x.config.Height > 0 {
		x.webcam.Set(gocv.VideoCaptureFrameWidth, float64(x.config.Width))
		x.webcam.Set(gocv.VideoCaptureFrameHeight, float64(x.config.Height))
	}

	// the writer is sized and timed from what the device actually delivers
	x.props = base.Properties{
		Rate:   x.webcam.Get(gocv.VideoCaptureFPS),
		Width:  int(x.webcam.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(x.webcam.Get(gocv.VideoCaptureFrameHeight)),
	}
	if x.props.Rate <= 0 {
		x.props.Rate = float64(x.config.Rate)
	}
	log.Info().Str("component", "driver").Str("name", x.config.Name).Float64("rate", x.props.Rate).Int("width", x.props.Width).Int("height", x.props.Height).Msg("opened")
	return nil
}

func (x *Driver) Properties() base.Properties {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return x.props
}

// Read does not retry: a local device that stops delivering frames is gone.
func (x *Driver) Read() (base.IFrame, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	if x.webcam == nil {
		return nil, base.ErrSourceClosed
	}
	img := gocv.NewMat()
	if !x.webcam.Read(&img) || img.Empty() {
		img.Close()
		return nil, fmt.Errorf("device %d: %w", x.config.Device, base.ErrSourceExhausted)
	}
	if x.config.Flip {
		gocv.Flip(img, &img, 1)
	}
	return base.NewFrame(img, time.Now()), nil
}

func (x *Driver) Close() error {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	if x.webcam == nil {
		return nil
	}
	err := x.webcam.Close()
	x.webcam = nil
	if err != nil {
		log.Error().Err(err).Str("component", "driver").Str("name", x.config.Name).Msg("Close")
	}
	return err
}
