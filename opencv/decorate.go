// Copyright © 2023 Sloan Childers
package opencv

import (
	"image"
	"image/color"

	"github.com/metallurk/cctv/base"
	"gocv.io/x/gocv"
)

var (
	white = color.RGBA{255, 255, 255, 0}
	green = color.RGBA{0, 255, 0, 0}
	blue  = color.RGBA{0, 0, 255, 0}
	red   = color.RGBA{255, 0, 0, 0}
)

type Decorator struct {
	name string
}

func NewDecorator(name string) base.IDecorator {
	return &Decorator{name: name}
}

// Annotate stamps the camera label and the capture time onto a copy of the raw frame.
func (x *Decorator) Annotate(frame base.IFrame) base.IFrame {
	out := frame.Clone()
	img := out.OpenCV()
	gocv.PutText(&img, x.name, image.Pt(10, 30), gocv.FontHersheySimplex, 1, white, 2)
	gocv.PutText(&img, frame.Time().Format(base.OverlayTimeLayout), image.Pt(10, img.Rows()-10), gocv.FontHersheySimplex, 0.5, white, 1)
	return out
}

func (x *Decorator) Decorate(frame base.IFrame, event base.MotionEvent, masks []base.Rect, recording bool) base.IFrame {
	out := frame.Clone()
	img := out.OpenCV()
	for _, box := range event.Boxes {
		gocv.Rectangle(&img, box, green, 2)
	}
	for _, mask := range masks {
		mask.Render(&img, blue, 2)
	}
	if recording {
		x0 := img.Cols() - 100
		gocv.PutText(&img, "REC", image.Pt(x0, 30), gocv.FontHersheySimplex, 1, white, 2)
		gocv.Circle(&img, image.Pt(x0+81, 20), 10, red, -1)
	}
	return out
}
