// Copyright © 2023 Sloan Childers
package main

import (
	"context"
	"errors"
	"os"

	"github.com/metallurk/cctv/base"
	"github.com/metallurk/cctv/blackjack"
	"github.com/metallurk/cctv/indicator"
	"github.com/metallurk/cctv/opencv"
	"github.com/metallurk/cctv/recorder"
	"github.com/metallurk/cctv/sink"
	"github.com/pborman/getopt"
	"github.com/rs/zerolog/log"
)

func main() {
	rotate := getopt.BoolLong("rotate", 'r', "flip frames horizontally")
	device := getopt.IntLong("source", 's', -1, "capture device index")
	masksFile := getopt.StringLong("file", 'f', "", "masks file to load at startup")
	saveFile := getopt.StringLong("save_filename", 0, "", "masks file written by the save command")
	getopt.Parse()

	serverCfg := &Config{}
	err := sink.LoadEnv(serverCfg)
	if err != nil {
		log.Fatal().Err(err).Str("component", "server").Msg("load environment")
		return
	}
	sink.InitLogger(serverCfg.LogLevel)
	if *masksFile != "" {
		serverCfg.MasksFile = *masksFile
	}
	if *saveFile != "" {
		serverCfg.SaveMasksFile = *saveFile
	}

	log.Info().Msg("It's alive!")

	config := &base.CameraConfig{}
	err = sink.LoadJson(serverCfg.CameraConfig, config)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("component", "server").Str("file", serverCfg.CameraConfig).Msg("camera config missing, using defaults")
	} else if err != nil {
		log.Fatal().Err(err).Str("component", "server").Str("file", serverCfg.CameraConfig).Msg("load camera config")
		return
	}
	config.SetDefaults()
	if !config.Motion.Enabled {
		log.Warn().Str("component", "server").Str("name", config.Name).Msg("motion detection disabled, nothing will be recorded")
	}
	if *rotate {
		config.Flip = true
	}
	if *device >= 0 {
		config.Device = *device
	}

	err = run(serverCfg, config)
	if err != nil {
		log.Fatal().Err(err).Str("component", "server").Str("name", config.Name).Msg("camera stopped")
	}
	log.Info().Str("component", "server").Str("name", config.Name).Msg("bye")
}

func run(serverCfg *Config, config *base.CameraConfig) error {
	var source base.ISource
	switch config.Plugin {
	case "opencv":
		source = opencv.NewDriver(config)
	case "blackjack":
		source = blackjack.NewDriver(config)
	default:
		return base.ErrInvalidPlugin
	}
	err := source.Open()
	if err != nil {
		source.Close()
		return err
	}
	props := source.Properties()
	log.Info().Str("component", "server").Str("name", config.Name).Int("width", props.Width).Int("height", props.Height).Float64("rate", props.Rate).Msg("device opened")

	camera := recorder.NewCamera(config, source,
		opencv.NewMotion(config.Motion),
		opencv.NewDecorator(config.Name),
		opencv.NewWriterFactory(config.Recording, props))
	defer camera.Close()

	if config.GPS != nil && config.GPS.Device != "" {
		gps := base.NewGPS(config.GPS)
		err = gps.Open()
		if err != nil {
			log.Warn().Err(err).Str("component", "server").Str("device", config.GPS.Device).Msg("gps unavailable")
		} else {
			gps.Start()
			camera.SetGPS(gps)
		}
	}

	var led base.IIndicator = &indicator.Log{Name: config.Name}
	if config.Indicator != nil && config.Indicator.Pin > 0 {
		pin, err := indicator.NewLED(config.Indicator)
		if err != nil {
			log.Warn().Err(err).Str("component", "server").Int("pin", config.Indicator.Pin).Msg("gpio unavailable")
		} else {
			led = pin
		}
	}
	defer led.Close()
	camera.OnStateChange(func(state recorder.State) {
		led.Set(state == recorder.Recording)
	})

	if serverCfg.MasksFile != "" {
		err = camera.LoadMasks(serverCfg.MasksFile)
		if err != nil {
			log.Warn().Err(err).Str("component", "server").Str("file", serverCfg.MasksFile).Msg("load masks")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := sink.NewShutdownHandler()
	shutdown.AddListener(camera.RequestStop)
	shutdown.AddListener(cancel)
	shutdown.Listen()

	camera.Start(ctx)

	if serverCfg.WatchMasks && serverCfg.MasksFile != "" {
		fileName := serverCfg.MasksFile
		err = sink.WatchFile(ctx, fileName, func() {
			err := camera.LoadMasks(fileName)
			if err != nil {
				log.Warn().Err(err).Str("component", "server").Str("file", fileName).Msg("reload masks")
			}
		})
		if err != nil {
			log.Warn().Err(err).Str("component", "server").Str("file", fileName).Msg("watch masks")
		}
	}

	formats, _ := source.(FormatLister)
	handlers := NewCctvServer(camera, formats, config, serverCfg.ApiKey, serverCfg.SaveMasksFile)
	go func() {
		err := sink.ListenAndServe(ctx, serverCfg.ListenAddr, "", "", handlers.Router(serverCfg.PathPrefix))
		if err != nil {
			log.Error().Err(err).Str("component", "server").Msg("listen and serve")
		}
	}()

	err = camera.Wait()
	cancel()
	return err
}
