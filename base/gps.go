// Copyright © 2023 Sloan Childers
package base

import (
	"bufio"
	"bytes"
	"strings"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	dectofrac "github.com/av-elier/go-decimal-to-rational"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

type ExifInfo struct {
	latitudeRef  string
	latitude     []exifcommon.Rational
	longitudeRef string
	longitude    []exifcommon.Rational
	trackRef     string
	track        exifcommon.Rational
	speedRef     string
	speed        exifcommon.Rational
}

// GPS geotags snapshots from an NMEA receiver on a serial port.
type GPS struct {
	config *GPSConfig
	port   serial.Port
	nmea   nmea.RMC
	fix    bool
	buf    []byte
	mutex  sync.Mutex
}

func NewGPS(config *GPSConfig) *GPS {
	return &GPS{config: config, buf: make([]byte, 1024)}
}

func (x *GPS) Open() error {
	baud := x.config.Baud
	if baud == 0 {
		baud = 9600
	}
	mode := &serial.Mode{
		BaudRate: baud,
		Parity:   serial.NoParity,
		DataBits: 8,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(x.config.Device, mode)
	if err != nil {
		log.Error().Err(err).Str("component", "gps").Str("device", x.config.Device).Msg("serial.Open")
		x.port = nil
		return err
	}
	x.port = port
	return nil
}

func (x *GPS) Close() {
	if x.port != nil {
		x.port.Close()
	}
}

// ToExif returns nil until the receiver reported a valid fix.
func (x *GPS) ToExif() *ExifInfo {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	if !x.fix {
		return nil
	}

	exif := &ExifInfo{}
	exif.latitude = GpsDegrees(x.nmea.Latitude)
	exif.latitudeRef = "N"
	if x.nmea.Latitude < 0 {
		exif.latitudeRef = "S"
	}
	exif.longitude = GpsDegrees(x.nmea.Longitude)
	exif.longitudeRef = "E"
	if x.nmea.Longitude < 0 {
		exif.longitudeRef = "W"
	}

	exif.trackRef = "T" // true north
	frac := dectofrac.NewRatP(x.nmea.Course, 0.01)
	exif.track = exifcommon.Rational{Numerator: uint32(frac.Num().Uint64()), Denominator: uint32(frac.Denom().Uint64())}

	exif.speedRef = "N" // knots, as reported by RMC
	frac = dectofrac.NewRatP(x.nmea.Speed, 0.01)
	exif.speed = exifcommon.Rational{Numerator: uint32(frac.Num().Uint64()), Denominator: uint32(frac.Denom().Uint64())}
	return exif
}

func (x *GPS) Start() {
	if x.port != nil {
		go x.run()
	}
}

func (x *GPS) update(line string) {
	s, err := nmea.Parse(line)
	if err != nil {
		log.Debug().Err(err).Str("component", "gps").Msg("nmea.Parse")
		return
	}
	if s.DataType() != nmea.TypeRMC {
		return
	}
	rmc := s.(nmea.RMC)
	x.mutex.Lock()
	x.nmea = rmc
	x.fix = rmc.Validity == nmea.ValidRMC
	x.mutex.Unlock()
}

func (x *GPS) run() {
	rate := x.config.Rate
	if rate <= 0 {
		rate = 1
	}
	for {
		n, err := x.port.Read(x.buf)
		if err != nil {
			log.Error().Err(err).Str("component", "gps").Msg("port.Read")
			return
		}
		if strings.Contains(string(x.buf[:n]), "RMC") {
			scanner := bufio.NewScanner(bytes.NewReader(x.buf[:n]))
			scanner.Split(bufio.ScanLines)
			for scanner.Scan() {
				x.update(scanner.Text())
			}
		}
		time.Sleep(time.Duration(rate) * time.Second)
	}
}
