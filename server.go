// Copyright © 2023 Sloan Childers
package main

import (
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/metallurk/cctv/base"
	"github.com/metallurk/cctv/recorder"
	"github.com/metallurk/cctv/sink"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Config struct {
	PathPrefix    string `env:"PATH_PREFIX" envDefault:"/"`
	ListenAddr    string `env:"LISTEN_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"INFO"`
	ApiKey        string `env:"API_KEY"`
	CameraConfig  string `env:"CAMERA_CONFIG" envDefault:"./camera.json"`
	MasksFile     string `env:"MASKS_FILE"`
	SaveMasksFile string `env:"SAVE_MASKS_FILE" envDefault:"Camera1.json"`
	WatchMasks    bool   `env:"WATCH_MASKS" envDefault:"false"`
}

// Recorder is the slice of recorder.Camera the control surface drives.
type Recorder interface {
	Status() recorder.Status
	Recalibrate()
	AddMask(rect base.Rect) base.Rect
	RemoveMaskAt(p image.Point) int
	Masks() []base.Rect
	SaveMasks(fileName string) error
	SetEditMode(on bool)
	EditMode() bool
	Snapshot(label string) (string, error)
	Jpeg() ([]byte, time.Time, error)
	RequestStop()
}

type FormatLister interface {
	ListFormatsAndFrameSizes() base.Formats
}

type CctvServer struct {
	camera   Recorder
	formats  FormatLister
	config   *base.CameraConfig
	apiKey   string
	saveFile string
}

var ErrApiKey = errors.New("api key invalid")
var ErrCommand = errors.New("unknown command")
var ErrPoint = errors.New("x and y are required")

func NewCctvServer(camera Recorder, formats FormatLister, config *base.CameraConfig, apiKey, saveFile string) *CctvServer {
	return &CctvServer{
		camera:   camera,
		formats:  formats,
		config:   config,
		apiKey:   apiKey,
		saveFile: saveFile}
}

func (x *CctvServer) Router(prefix string) http.Handler {
	router := chi.NewMux()
	router.Route(prefix, func(r chi.Router) {
		r.Get("/v1/status", x.StatusHandler)
		r.Get("/v1/config", x.ConfigReadHandler)
		r.Get("/v1/formats", x.FormatsHandler)
		r.Get("/v1/command", x.CommandHandler)
		r.Get("/v1/masks", x.MasksReadHandler)
		r.Post("/v1/masks", x.MaskAddHandler)
		r.Delete("/v1/masks", x.MaskRemoveHandler)
		r.Get("/v1/snapshot", x.SnapshotHandler)
		r.Handle("/metrics", promhttp.Handler())
	})
	return router
}

func (x *CctvServer) checkAPIKey(r *http.Request) bool {
	if x.apiKey == "" {
		return true
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		key = r.Header.Get("X-Api-Key")
	}

	return key == x.apiKey
}

func (x *CctvServer) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !x.checkAPIKey(r) {
		sink.SendError(w, ErrApiKey, http.StatusForbidden)
		return
	}
	status := struct {
		recorder.Status
		EditMode bool
		Masks    int
	}{
		Status:   x.camera.Status(),
		EditMode: x.camera.EditMode(),
		Masks:    len(x.camera.Masks()),
	}
	sink.SendPrettyJSON(r.Context(), w, status)
}

func (x *CctvServer) CommandHandler(w http.ResponseWriter, r *http.Request) {
	if !x.checkAPIKey(r) {
		sink.SendError(w, ErrApiKey, http.StatusForbidden)
		return
	}

	result := map[string]any{}
	command := r.URL.Query().Get("command")
	switch command {
	case "recalibrate":
		x.camera.Recalibrate()
	case "stop":
		x.camera.RequestStop()
	case "edit":
		on := !x.camera.EditMode()
		if value := r.URL.Query().Get("on"); value != "" {
			on, _ = strconv.ParseBool(value)
		}
		x.camera.SetEditMode(on)
		result["editMode"] = on
	case "snapshot":
		label := r.URL.Query().Get("label")
		if label == "" {
			label = "Snapshot"
		}
		fileName, err := x.camera.Snapshot(label)
		if err != nil {
			sink.SendError(w, err, http.StatusInternalServerError)
			return
		}
		result["file"] = fileName
	case "save":
		err := x.camera.SaveMasks(x.saveFile)
		if err != nil {
			sink.SendError(w, err, http.StatusInternalServerError)
			return
		}
		result["file"] = x.saveFile
	default:
		sink.SendError(w, ErrCommand, http.StatusBadRequest)
		return
	}
	log.Info().Str("component", "server").Str("name", x.config.Name).Str("command", command).Msg("command")
	result["command"] = command
	sink.SendPrettyJSON(r.Context(), w, result)
}

func (x *CctvServer) FormatsHandler(w http.ResponseWriter, r *http.Request) {
	if !x.checkAPIKey(r) {
		sink.SendError(w, ErrApiKey, http.StatusForbidden)
		return
	}
	formats := base.Formats{}
	if x.formats != nil {
		formats = x.formats.ListFormatsAndFrameSizes()
	}
	sink.SendPrettyJSON(r.Context(), w, formats)
}

func (x *CctvServer) ConfigReadHandler(w http.ResponseWriter, r *http.Request) {
	if !x.checkAPIKey(r) {
		sink.SendError(w, ErrApiKey, http.StatusForbidden)
		return
	}
	sink.SendPrettyJSON(r.Context(), w, x.config)
}

func (x *CctvServer) MasksReadHandler(w http.ResponseWriter, r *http.Request) {
	if !x.checkAPIKey(r) {
		sink.SendError(w, ErrApiKey, http.StatusForbidden)
		return
	}
	sink.SendPrettyJSON(r.Context(), w, x.camera.Masks())
}

func (x *CctvServer) MaskAddHandler(w http.ResponseWriter, r *http.Request) {
	if !x.checkAPIKey(r) {
		sink.SendError(w, ErrApiKey, http.StatusForbidden)
		return
	}
	defer r.Body.Close()
	rect := base.Rect{}
	err := json.NewDecoder(r.Body).Decode(&rect)
	if err != nil {
		sink.SendError(w, err, http.StatusBadRequest)
		return
	}
	sink.SendPrettyJSON(r.Context(), w, x.camera.AddMask(rect))
}

func (x *CctvServer) MaskRemoveHandler(w http.ResponseWriter, r *http.Request) {
	if !x.checkAPIKey(r) {
		sink.SendError(w, ErrApiKey, http.StatusForbidden)
		return
	}
	px, errX := strconv.Atoi(r.URL.Query().Get("x"))
	py, errY := strconv.Atoi(r.URL.Query().Get("y"))
	if errX != nil || errY != nil {
		sink.SendError(w, ErrPoint, http.StatusBadRequest)
		return
	}
	removed := x.camera.RemoveMaskAt(image.Pt(px, py))
	sink.SendPrettyJSON(r.Context(), w, map[string]int{"removed": removed})
}

// SnapshotHandler returns a single JPEG of the current display frame.
func (x *CctvServer) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	if !x.checkAPIKey(r) {
		sink.SendError(w, ErrApiKey, http.StatusForbidden)
		return
	}
	jpeg, _, err := x.camera.Jpeg()
	if errors.Is(err, base.ErrNoFrame) {
		jpeg = base.EmptyFrame(x.config.Width, x.config.Height)
	} else if err != nil {
		sink.SendError(w, err, http.StatusInternalServerError)
		return
	}
	if !base.ValidateJPEG(jpeg) {
		log.Warn().Str("component", "server").Str("name", x.config.Name).Msg("invalid JPEG")
		sink.SendError(w, base.ErrNoFrame, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(jpeg)))
	w.WriteHeader(http.StatusOK)
	w.Write(jpeg)
}
