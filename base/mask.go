// Copyright © 2023 Sloan Childers
package base

import (
	"image"
	"image/color"
	"sync"

	"gocv.io/x/gocv"
)

// Rect is an inclusive rectangle with x1<=x2 and y1<=y2 once normalized.
type Rect struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func NewRect(p1, p2 image.Point) Rect {
	return Rect{X1: p1.X, Y1: p1.Y, X2: p2.X, Y2: p2.Y}.Normalize()
}

func (x Rect) Normalize() Rect {
	return Rect{
		X1: min(x.X1, x.X2),
		Y1: min(x.Y1, x.Y2),
		X2: max(x.X1, x.X2),
		Y2: max(x.Y1, x.Y2),
	}
}

func (x Rect) Contains(p image.Point) bool {
	return x.X1 <= p.X && p.X <= x.X2 && x.Y1 <= p.Y && p.Y <= x.Y2
}

// Rectangle returns the corners as an image.Rectangle; gocv drawing treats both corners as inclusive.
func (x Rect) Rectangle() image.Rectangle {
	return image.Rectangle{Min: image.Pt(x.X1, x.Y1), Max: image.Pt(x.X2, x.Y2)}
}

// Render draws the rectangle outline, or fills it when thickness is negative.
func (x Rect) Render(img *gocv.Mat, c color.RGBA, thickness int) {
	gocv.Rectangle(img, x.Rectangle(), c, thickness)
}

type MaskSet struct {
	masks []Rect
	mutex sync.RWMutex
}

func NewMaskSet(masks ...Rect) *MaskSet {
	x := &MaskSet{}
	for _, mask := range masks {
		x.Add(mask)
	}
	return x
}

// Add accepts degenerate rectangles; they are normalized, never rejected.
func (x *MaskSet) Add(mask Rect) Rect {
	mask = mask.Normalize()
	x.mutex.Lock()
	x.masks = append(x.masks, mask)
	x.mutex.Unlock()
	return mask
}

// RemoveContaining removes every mask under p and returns how many were removed.
func (x *MaskSet) RemoveContaining(p image.Point) int {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	kept := x.masks[:0]
	for _, mask := range x.masks {
		if !mask.Contains(p) {
			kept = append(kept, mask)
		}
	}
	removed := len(x.masks) - len(kept)
	// drop references past the new length
	for i := len(kept); i < len(x.masks); i++ {
		x.masks[i] = Rect{}
	}
	x.masks = kept
	return removed
}

// Replace swaps the whole set, used when masks are reloaded from disk.
func (x *MaskSet) Replace(masks []Rect) {
	normalized := make([]Rect, 0, len(masks))
	for _, mask := range masks {
		normalized = append(normalized, mask.Normalize())
	}
	x.mutex.Lock()
	x.masks = normalized
	x.mutex.Unlock()
}

func (x *MaskSet) ListAll() []Rect {
	x.mutex.RLock()
	defer x.mutex.RUnlock()
	out := make([]Rect, len(x.masks))
	copy(out, x.masks)
	return out
}

func (x *MaskSet) Len() int {
	x.mutex.RLock()
	defer x.mutex.RUnlock()
	return len(x.masks)
}
