// Copyright © 2023 Sloan Childers
package main

import (
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/metallurk/cctv/base"
	"github.com/metallurk/cctv/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	masks        *base.MaskSet
	edit         bool
	recalibrated int
	stopped      int
	saved        string
	label        string
	jpeg         []byte
	jpegErr      error
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{masks: base.NewMaskSet(), jpeg: base.EmptyFrame(64, 48)}
}

func (x *fakeRecorder) Status() recorder.Status {
	return recorder.Status{State: recorder.Idle.String(), Capacity: 10}
}
func (x *fakeRecorder) Recalibrate()                     { x.recalibrated++ }
func (x *fakeRecorder) AddMask(rect base.Rect) base.Rect { return x.masks.Add(rect) }
func (x *fakeRecorder) RemoveMaskAt(p image.Point) int   { return x.masks.RemoveContaining(p) }
func (x *fakeRecorder) Masks() []base.Rect               { return x.masks.ListAll() }
func (x *fakeRecorder) SaveMasks(fileName string) error  { x.saved = fileName; return nil }
func (x *fakeRecorder) SetEditMode(on bool)              { x.edit = on }
func (x *fakeRecorder) EditMode() bool                   { return x.edit }
func (x *fakeRecorder) RequestStop()                     { x.stopped++ }
func (x *fakeRecorder) Jpeg() ([]byte, time.Time, error) { return x.jpeg, time.Now(), x.jpegErr }
func (x *fakeRecorder) Snapshot(label string) (string, error) {
	x.label = label
	return label + "__01_01_2024_00-00-00.jpg", nil
}

func newTestServer(camera Recorder, apiKey string) http.Handler {
	config := &base.CameraConfig{}
	config.SetDefaults()
	config.Width = 64
	config.Height = 48
	return NewCctvServer(camera, nil, config, apiKey, "Camera1.json").Router("/")
}

func serve(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestStatusHandler(t *testing.T) {
	camera := newFakeRecorder()
	camera.AddMask(base.Rect{X1: 1, Y1: 1, X2: 5, Y2: 5})
	w := serve(newTestServer(camera, ""), http.MethodGet, "/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	status := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "IDLE", status["State"])
	assert.Equal(t, float64(1), status["Masks"])
	assert.Equal(t, false, status["EditMode"])
}

func TestApiKey(t *testing.T) {
	camera := newFakeRecorder()
	handler := newTestServer(camera, "secret")

	w := serve(handler, http.MethodGet, "/v1/status", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(handler, http.MethodGet, "/v1/status?key=secret", "")
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/status", nil)
	req.Header.Set("X-Api-Key", "secret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCommandHandler(t *testing.T) {
	camera := newFakeRecorder()
	handler := newTestServer(camera, "")

	w := serve(handler, http.MethodGet, "/v1/command?command=recalibrate", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, camera.recalibrated)

	w = serve(handler, http.MethodGet, "/v1/command?command=edit", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, camera.edit)
	w = serve(handler, http.MethodGet, "/v1/command?command=edit&on=false", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, camera.edit)

	w = serve(handler, http.MethodGet, "/v1/command?command=snapshot&label=door", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "door", camera.label)
	assert.Contains(t, w.Body.String(), "door__01_01_2024_00-00-00.jpg")

	w = serve(handler, http.MethodGet, "/v1/command?command=snapshot", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Snapshot", camera.label)

	w = serve(handler, http.MethodGet, "/v1/command?command=save", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Camera1.json", camera.saved)

	w = serve(handler, http.MethodGet, "/v1/command?command=stop", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, camera.stopped)

	w = serve(handler, http.MethodGet, "/v1/command?command=dance", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMaskHandlers(t *testing.T) {
	camera := newFakeRecorder()
	handler := newTestServer(camera, "")

	w := serve(handler, http.MethodPost, "/v1/masks", `{"x1":50,"y1":40,"x2":10,"y2":20}`)
	require.Equal(t, http.StatusOK, w.Code)
	rect := base.Rect{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rect))
	assert.Equal(t, base.Rect{X1: 10, Y1: 20, X2: 50, Y2: 40}, rect)

	w = serve(handler, http.MethodPost, "/v1/masks", `{"x1":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(handler, http.MethodGet, "/v1/masks", "")
	require.Equal(t, http.StatusOK, w.Code)
	masks := []base.Rect{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &masks))
	assert.Equal(t, []base.Rect{{X1: 10, Y1: 20, X2: 50, Y2: 40}}, masks)

	w = serve(handler, http.MethodDelete, "/v1/masks?x=10", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(handler, http.MethodDelete, "/v1/masks?x=10&y=40", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"removed":1}`, w.Body.String())
	assert.Empty(t, camera.Masks())
}

func TestSnapshotHandler(t *testing.T) {
	camera := newFakeRecorder()
	handler := newTestServer(camera, "")

	w := serve(handler, http.MethodGet, "/v1/snapshot", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.True(t, base.ValidateJPEG(w.Body.Bytes()))

	camera.jpeg = nil
	camera.jpegErr = base.ErrNoFrame
	w = serve(handler, http.MethodGet, "/v1/snapshot", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, base.ValidateJPEG(w.Body.Bytes()))

	camera.jpegErr = errors.New("encode failed")
	w = serve(handler, http.MethodGet, "/v1/snapshot", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestConfigAndFormats(t *testing.T) {
	handler := newTestServer(newFakeRecorder(), "")

	w := serve(handler, http.MethodGet, "/v1/config", "")
	require.Equal(t, http.StatusOK, w.Code)
	config := base.CameraConfig{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &config))
	assert.Equal(t, "Camera 1", config.Name)

	w = serve(handler, http.MethodGet, "/v1/formats", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(handler, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
