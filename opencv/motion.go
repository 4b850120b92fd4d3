// Copyright © 2023 Sloan Childers
package opencv

import (
	"image"
	"image/color"
	"sync"

	"github.com/metallurk/cctv/base"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

var black = color.RGBA{0, 0, 0, 0}

// Motion is a background subtractor against a single reference frame.
//
// The reference is kept twice: the clean blurred grayscale capture and a copy
// with every mask blacked out. Comparison frames get the same masks, so a mask
// edge never shows up as a difference.
type Motion struct {
	config    *base.MotionConfig
	kernel    gocv.Mat
	clean     gocv.Mat
	reference gocv.Mat
	masks     []base.Rect
	ready     bool
	mutex     sync.RWMutex
}

func NewMotion(config *base.MotionConfig) base.IMotion {
	return &Motion{
		config:    config,
		kernel:    gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3)),
		clean:     gocv.NewMat(),
		reference: gocv.NewMat(),
		masks:     append([]base.Rect{}, config.Mask...),
	}
}

func (x *Motion) Ready() bool {
	x.mutex.RLock()
	defer x.mutex.RUnlock()
	return x.ready
}

// SetReference recalibrates the "empty" scene. The expensive work happens before
// the lock so Detect is only held out for the swap.
func (x *Motion) SetReference(frame base.IFrame) {
	clean := x.prepareFrame(frame.OpenCV())

	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.clean.Close()
	x.clean = clean
	x.rebuild()
	x.ready = true
	log.Info().Str("component", "motion").Int("masks", len(x.masks)).Msg("reference updated")
}

// SetMasks takes effect on the next Detect call.
func (x *Motion) SetMasks(masks []base.Rect) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.masks = append([]base.Rect{}, masks...)
	if x.ready {
		x.rebuild()
	}
}

// rebuild must be called with the write lock held.
func (x *Motion) rebuild() {
	reference := x.clean.Clone()
	applyMasks(&reference, x.masks)
	x.reference.Close()
	x.reference = reference
}

func (x *Motion) Detect(in base.IFrame) base.MotionEvent {
	event := base.MotionEvent{Time: in.Time()}

	gray := x.prepareFrame(in.OpenCV())
	defer gray.Close()

	delta := gocv.NewMat()
	defer delta.Close()

	x.mutex.RLock()
	if !x.ready {
		x.mutex.RUnlock()
		return event
	}
	applyMasks(&gray, x.masks)
	gocv.AbsDiff(x.reference, gray, &delta)
	x.mutex.RUnlock()

	// ThresholdBinary keeps values strictly above thresh
	gocv.Threshold(delta, &delta, float32(x.config.Threshold-1), 255, gocv.ThresholdBinary)
	for i := 0; i < x.config.Dilate; i++ {
		gocv.Dilate(delta, &delta, x.kernel)
	}

	contours := gocv.FindContours(delta, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if gocv.ContourArea(contour) < x.config.Area {
			continue
		}
		event.Boxes = append(event.Boxes, gocv.BoundingRect(contour))
	}
	event.Motion = len(event.Boxes) > 0
	return event
}

func (x *Motion) Close() {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	x.kernel.Close()
	x.clean.Close()
	x.reference.Close()
	x.ready = false
}

// prepareFrame converts to grayscale and blurs away sensor noise.
func (x *Motion) prepareFrame(currFrame gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if currFrame.Channels() == 1 {
		currFrame.CopyTo(&gray)
	} else {
		gocv.CvtColor(currFrame, &gray, gocv.ColorBGRToGray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(x.config.Blur, x.config.Blur), 0, 0, gocv.BorderDefault)
	return gray
}

func applyMasks(img *gocv.Mat, masks []base.Rect) {
	for _, mask := range masks {
		mask.Render(img, black, -1)
	}
}
