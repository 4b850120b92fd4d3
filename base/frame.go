// Copyright © 2023 <Sloan Childers>
package base

import (
	"bufio"
	"bytes"
	"image"
	"image/jpeg"
	"time"

	"gocv.io/x/gocv"
)

// Frame is never mutated after NewFrame; decorations are drawn on clones.
type Frame struct {
	img       gocv.Mat
	frameTime time.Time
}

func NewFrame(img gocv.Mat, frameTime time.Time) IFrame {
	return &Frame{
		img:       img,
		frameTime: frameTime}
}

func (x *Frame) Clone() IFrame {
	return &Frame{
		img:       x.img.Clone(),
		frameTime: x.frameTime}
}

func (x *Frame) Time() time.Time {
	return x.frameTime
}

func (x *Frame) Close() {
	x.img.Close()
}

func (x *Frame) Width() int {
	return x.img.Cols()
}

func (x *Frame) Height() int {
	return x.img.Rows()
}

func (x *Frame) Empty() bool {
	return x.img.Empty()
}

func (x *Frame) OpenCV() gocv.Mat {
	return x.img
}

func (x *Frame) ToJpeg(quality int) ([]byte, error) {
	data, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, x.img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, err
	}
	defer data.Close()
	return Copy(data.GetBytes()), nil
}

func EmptyFrame(width, height int) []byte {
	pix := make([]uint8, width*height*4)
	img := &image.NRGBA{
		Pix:    pix,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	var b bytes.Buffer
	w := bufio.NewWriter(&b)
	jpeg.Encode(w, img, &jpeg.Options{Quality: 10})
	w.Flush()
	return b.Bytes()
}

func Copy(slice []byte) []byte {
	out := make([]byte, len(slice))
	copy(out, slice)
	return out
}
