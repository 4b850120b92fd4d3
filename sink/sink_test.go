package sink

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

func TestSaveLoadJson(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "masks.json")
	in := []record{{X1: 1, Y1: 2}, {X1: 3, Y1: 4}}
	require.NoError(t, SaveJson(fileName, in))

	out := []record{}
	require.NoError(t, LoadJson(fileName, &out))
	assert.Equal(t, in, out)
}

func TestLoadJson_Missing(t *testing.T) {
	out := []record{}
	err := LoadJson(filepath.Join(t.TempDir(), "nope.json"), &out)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadJson_Garbage(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(fileName, []byte("{"), 0644))
	out := []record{}
	assert.Error(t, LoadJson(fileName, &out))
}

func TestInitLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	InitLogger("WARN")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestLoadEnv(t *testing.T) {
	type config struct {
		ListenAddr string `env:"LISTEN_ADDR" envDefault:"0.0.0.0:8080"`
		LogLevel   string `env:"LOG_LEVEL" envDefault:"INFO"`
	}
	t.Setenv("LOG_LEVEL", "DEBUG")
	cfg := &config{}
	require.NoError(t, LoadEnv(cfg))
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:8080", cfg.ListenAddr)
}

func TestSendError(t *testing.T) {
	w := httptest.NewRecorder()
	SendError(w, errors.New("boom"), http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.JSONEq(t, `{"error":"boom"}`, w.Body.String())
}

func TestSendPrettyJSON(t *testing.T) {
	w := httptest.NewRecorder()
	SendPrettyJSON(context.Background(), w, map[string]int{"a": 1})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"a":1}`, w.Body.String())
}

func TestShutdownHandler_RunsOnce(t *testing.T) {
	var calls atomic.Int32
	handler := NewShutdownHandler()
	handler.AddListener(func() { calls.Add(1) })
	handler.AddListener(func() { calls.Add(1) })
	handler.Trigger()
	handler.Trigger()
	assert.Equal(t, int32(2), calls.Load())
}

func TestWatchFile(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "masks.json")
	require.NoError(t, os.WriteFile(fileName, []byte("[]"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	require.NoError(t, WatchFile(ctx, fileName, func() { changes.Add(1) }))

	require.NoError(t, SaveJson(fileName, []record{{X1: 1}}))
	assert.Eventually(t, func() bool { return changes.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
}
