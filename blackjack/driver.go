// Copyright © 2022 Sloan Childers
package blackjack

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/blackjack/webcam"
	"github.com/metallurk/cctv/base"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// Driver reads MJPEG frames straight from V4L2.
type Driver struct {
	config *base.CameraConfig
	webcam *webcam.Webcam
	props  base.Properties
	mutex  sync.Mutex
}

const (
	V4L2_PIX_FMT_YUYV = 0x56595559
	V4L2_PIX_FMT_MJPG = 0x47504A4D

	// seconds to wait for the device before giving up on it
	frameTimeout = 5
)

func NewDriver(config *base.CameraConfig) *Driver {
	return &Driver{config: config}
}

func (x *Driver) ListFormatsAndFrameSizes() base.Formats {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	formats := base.Formats{}
	if x.webcam == nil {
		return formats
	}
	format_desc := x.webcam.GetSupportedFormats()
	for formatObj, formatStr := range format_desc {
		format := base.Format{Name: formatStr}
		sizes := []base.Size{}
		fs := base.FrameSizes(x.webcam.GetSupportedFrameSizes(formatObj))
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
	x.webcam, err = webcam.Open(fmt.Sprintf("/dev/video%d", x.config.Device))
	if err != nil {
		log.Error().Err(err).Str("component", "driver").Str("name", x.config.Name).Int("device", x.config.Device).Msg("webcam.Open")
		return err
	}

	err = x.webcam.SetFramerate(float32(x.config.Rate))
	if err != nil {
		log.Error().Err(err).Str("component", "driver").Str("name", x.config.Name).Msg("SetFramerate")
		return err
	}

	_, width, height, err := x.webcam.SetImageFormat(V4L2_PIX_FMT_MJPG, uint32(x.config.Width), uint32(x.config.Height))
	if err != nil {
		log.Error().Err(err).Str("component", "driver").Str("name", x.config.Name).Msg("SetImageFormat")
		return err
	}

	rate, err := x.webcam.GetFramerate()
	if err != nil || rate <= 0 {
		rate = x.config.Rate
	}
	x.props = base.Properties{Rate: float64(rate), Width: int(width), Height: int(height)}
	return x.webcam.StartStreaming()
}

func (x *Driver) Properties() base.Properties {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	return x.props
}

func (x *Driver) Read() (base.IFrame, error) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	if x.webcam == nil {
		return nil, base.ErrSourceClosed
	}
	err := x.webcam.WaitForFrame(frameTimeout)
	if err != nil {
		var timeout *webcam.Timeout
		if errors.As(err, &timeout) {
			return nil, fmt.Errorf("device %d timed out: %w", x.config.Device, base.ErrSourceExhausted)
		}
		return nil, fmt.Errorf("device %d: %w: %v", x.config.Device, base.ErrSourceExhausted, err)
	}
	data, err := x.webcam.ReadFrame()
	if err != nil || len(data) == 0 {
		return nil, fmt.Errorf("device %d: %w: empty frame", x.config.Device, base.ErrSourceExhausted)
	}
	// ReadFrame reuses the mmap buffer, decoding copies it out
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("device %d: %w: %v", x.config.Device, base.ErrSourceExhausted, err)
	}
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("device %d: %w: decode", x.config.Device, base.ErrSourceExhausted)
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
	err := x.webcam.StopStreaming()
	if err != nil {
		log.Error().Err(err).Str("component", "driver").Str("name", x.config.Name).Msg("StopStreaming")
	}
	err = x.webcam.Close()
	x.webcam = nil
	return err
}
