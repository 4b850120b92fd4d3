// Copyright © 2023 Sloan Childers
package recorder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cctv_frames_captured_total",
		Help: "Frames read from the camera source",
	})
	framesEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cctv_frames_evicted_total",
		Help: "Pre-roll frames evicted while idle",
	})
	framesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cctv_frames_written_total",
		Help: "Frames written to recording files",
	})
	framesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cctv_frames_dropped_total",
		Help: "Frames owed to a recording that could not be written",
	})
	motionEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cctv_motion_events_total",
		Help: "Frames with at least one qualifying contour",
	})
	recordingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cctv_recordings_total",
		Help: "Recording sessions started",
	})
	writerOpenFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cctv_writer_open_failures_total",
		Help: "Failed attempts to open a recording file",
	})
	bufferFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cctv_buffer_frames",
		Help: "Frames currently held in the pre-roll buffer",
	})
	recordingState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cctv_recording",
		Help: "1 while recording, 0 while idle",
	})
)
