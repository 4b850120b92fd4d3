// Copyright © 2015 <Oleksandr Senkovych>
// Copyright © 2023 <Sloan Childers>
package base

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/blackjack/webcam"
)

const (
	// DD_MM_YYYY_HH-MM-SS
	FileTimeLayout = "02_01_2006_15-04-05"
	// overlay text, e.g. "Monday, 02/01/2006 15:04:05"
	OverlayTimeLayout = "Monday, 02/01/2006 15:04:05"
)

// RecordingName derives the output file of a recording session from its start time.
func RecordingName(dir, ext string, start time.Time) string {
	return filepath.Join(dir, start.Format(FileTimeLayout)+ext)
}

// SnapshotName mirrors the recording pattern with a caller supplied label.
func SnapshotName(dir, label string, tm time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s__%s.jpg", filepath.Base(label), tm.Format(FileTimeLayout)))
}

const (
	JPEG_MARKER byte = 0xFF
	JPEG_SOI    byte = 0xD8
	JPEG_EOI    byte = 0xD9
)

func ValidateJPEG(data []byte) bool {
	size := len(data)
	if size < 4 {
		return false
	}
	if (data[0] == JPEG_MARKER) && (data[1] == JPEG_SOI) && (data[size-2] == JPEG_MARKER) && (data[size-1] == JPEG_EOI) {
		return true
	}
	return false
}

type Size struct {
	Size string
}
type Format struct {
	Name  string
	Sizes []Size
}
type Formats struct {
	Formats []Format
}

type FrameSizes []webcam.FrameSize

func (slice FrameSizes) Len() int {
	return len(slice)
}

// For sorting purposes
func (slice FrameSizes) Less(i, j int) bool {
	ls := slice[i].MaxWidth * slice[i].MaxHeight
	rs := slice[j].MaxWidth * slice[j].MaxHeight
	return ls < rs
}

// For sorting purposes
func (slice FrameSizes) Swap(i, j int) {
	slice[i], slice[j] = slice[j], slice[i]
}
