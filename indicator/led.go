// Copyright © 2023 Sloan Childers
package indicator

import (
	"sync"

	"github.com/metallurk/cctv/base"
	"github.com/rs/zerolog/log"
	"github.com/warthog618/gpio"
)

// LED lights a GPIO pin while the camera is recording.
type LED struct {
	pin   *gpio.Pin
	mutex sync.Mutex
}

func NewLED(config *base.IndicatorConfig) (base.IIndicator, error) {
	err := gpio.Open()
	if err != nil {
		log.Error().Err(err).Str("component", "indicator").Int("pin", config.Pin).Msg("gpio.Open")
		return nil, err
	}
	pin := gpio.NewPin(config.Pin)
	pin.Output()
	pin.Low()
	return &LED{pin: pin}, nil
}

func (x *LED) Set(on bool) {
	x.mutex.Lock()
	defer x.mutex.Unlock()
	if on {
		x.pin.High()
	} else {
		x.pin.Low()
	}
}

func (x *LED) Close() {
	x.Set(false)
	gpio.Close()
}

// Log stands in for the LED on hosts without GPIO.
type Log struct {
	Name string
}

func (x *Log) Set(on bool) {
	log.Debug().Str("component", "indicator").Str("name", x.Name).Bool("recording", on).Msg("indicator")
}

func (x *Log) Close() {}
