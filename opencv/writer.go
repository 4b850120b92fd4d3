// Copyright © 2023 Sloan Childers
package opencv

import (
	"fmt"

	"github.com/metallurk/cctv/base"
	"gocv.io/x/gocv"
)

type Writer struct {
	path   string
	writer *gocv.VideoWriter
}

// NewWriterFactory opens writers at the source's native rate and resolution.
func NewWriterFactory(config *base.RecordingConfig, props base.Properties) base.WriterFactory {
	return func(path string) (base.IWriter, error) {
		writer, err := gocv.VideoWriterFile(path, config.Codec, props.Rate, props.Width, props.Height, true)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", path, base.ErrWriterOpen, err)
		}
		if !writer.IsOpened() {
			writer.Close()
			return nil, fmt.Errorf("%s: %w: codec %s unavailable", path, base.ErrWriterOpen, config.Codec)
		}
		return &Writer{path: path, writer: writer}, nil
	}
}

func (x *Writer) Write(frame base.IFrame) error {
	return x.writer.Write(frame.OpenCV())
}

// Close flushes the container and releases the file.
func (x *Writer) Close() error {
	return x.writer.Close()
}
