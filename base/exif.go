// Copyright © 2023 Sloan Childers
package base

import (
	"bufio"
	"bytes"
	"errors"
	"math"
	"time"

	dsoprea "github.com/dsoprea/go-exif"
	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jis "github.com/dsoprea/go-jpeg-image-structure/v2"
	"github.com/rs/zerolog/log"
)

var ErrNotJpeg = errors.New("not a jpeg segment list")

// ExifMeta identifies the camera that produced a snapshot.
type ExifMeta struct {
	Artist string
	Make   string
	Model  string
	Host   string
	Time   time.Time
}

// WriteExif tags a JPEG with the camera identity and, when gpsInfo is not nil, its position.
func WriteExif(meta ExifMeta, gpsInfo *ExifInfo, jpeg []byte) ([]byte, error) {
	intfc, err := jis.NewJpegMediaParser().ParseBytes(jpeg)
	if err != nil {
		log.Error().Err(err).Str("component", "exif").Msg("ParseBytes")
		return jpeg, err
	}
	sl, ok := intfc.(*jis.SegmentList)
	if !ok {
		return jpeg, ErrNotJpeg
	}
	ib, err := sl.ConstructExifBuilder()
	if err != nil {
		log.Error().Err(err).Str("component", "exif").Msg("ConstructExifBuilder")
		return jpeg, err
	}

	ifd0Ib, _ := exif.GetOrCreateIbFromRootIb(ib, "IFD")
	exifIb, _ := exif.GetOrCreateIbFromRootIb(ib, dsoprea.IfdPathStandardExif)

	ifd0Ib.SetStandardWithName("Artist", meta.Artist)
	ifd0Ib.SetStandardWithName("Make", meta.Make)
	ifd0Ib.SetStandardWithName("Model", meta.Model)
	ifd0Ib.SetStandardWithName("HostComputer", meta.Host)
	exifIb.SetStandardWithName("DateTimeOriginal", meta.Time)

	if gpsInfo != nil {
		ifdGps, _ := exif.GetOrCreateIbFromRootIb(ib, dsoprea.IfdPathStandardGps)
		ifdGps.SetStandardWithName("GPSLatitudeRef", gpsInfo.latitudeRef)
		ifdGps.SetStandardWithName("GPSLatitude", gpsInfo.latitude)
		ifdGps.SetStandardWithName("GPSLongitudeRef", gpsInfo.longitudeRef)
		ifdGps.SetStandardWithName("GPSLongitude", gpsInfo.longitude)
		if gpsInfo.speedRef != "" {
			ifdGps.SetStandardWithName("GPSTrackRef", gpsInfo.trackRef)
			ifdGps.SetStandardWithName("GPSTrack", []exifcommon.Rational{gpsInfo.track})
			ifdGps.SetStandardWithName("GPSSpeedRef", gpsInfo.speedRef)
			ifdGps.SetStandardWithName("GPSSpeed", []exifcommon.Rational{gpsInfo.speed})
		}
	}

	err = sl.SetExif(ib)
	if err != nil {
		log.Error().Err(err).Str("component", "exif").Msg("SetExif")
		return jpeg, err
	}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	err = sl.Write(w)
	if err != nil {
		return jpeg, err
	}
	w.Flush()

	return Copy(buf.Bytes()), nil
}

func GpsDegrees(l float64) []exifcommon.Rational {
	val := math.Abs(l)
	degrees := int(math.Floor(val))
	minutes := int(math.Floor(60 * (val - float64(degrees))))
	seconds := 3600 * (val - float64(degrees) - (float64(minutes) / 60))
	return []exifcommon.Rational{
		{Numerator: uint32(degrees), Denominator: 1},
		{Numerator: uint32(minutes), Denominator: 1},
		{Numerator: uint32(seconds), Denominator: 1},
	}
}
