// Copyright © 2023 Sloan Childers
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/go-chi/chi/v5"
	"github.com/google/renameio/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func InitLogger(level string) {
	parsedLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.Fatal().Err(err).Msg("unable to configure logger")
	}
	zerolog.SetGlobalLevel(parsedLevel)
}

// LoadEnv fills output from the environment, after loading .env when one exists.
func LoadEnv(output interface{}) error {
	err := godotenv.Load(".env")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Error().Err(err).Str("component", "utils").Msg(".env")
		return err
	}
	return env.Parse(output)
}

func LoadJson(fileName string, cfg interface{}) error {
	fh, err := os.Open(fileName)
	if err != nil {
		log.Error().Err(err).Str("component", "utils").Str("file", fileName).Msg("load json open")
		return err
	}
	defer fh.Close()

	obj, err := io.ReadAll(fh)
	if err != nil {
		log.Error().Err(err).Str("component", "utils").Str("file", fileName).Msg("load json read")
		return err
	}
	err = json.Unmarshal(obj, cfg)
	if err != nil {
		log.Error().Err(err).Str("component", "utils").Str("file", fileName).Msg("load json parse")
		return err
	}
	return nil
}

// SaveJson replaces fileName atomically so a crash never leaves half a file behind.
func SaveJson(fileName string, data interface{}) error {
	out, err := json.MarshalIndent(data, "", "   ")
	if err != nil {
		log.Error().Err(err).Str("component", "utils").Str("file", fileName).Msg("save json marshal")
		return err
	}
	err = renameio.WriteFile(fileName, out, 0644)
	if err != nil {
		log.Error().Err(err).Str("component", "utils").Str("file", fileName).Msg("save json write")
		return err
	}
	return nil
}

func ListenAndServe(ctx context.Context, ListenAddr, SSLCertFile, SSLKeyFile string, router http.Handler) error {
	server := &http.Server{Addr: ListenAddr, Handler: router}
	go func() {
		<-ctx.Done()
		server.Close()
	}()
	var err error
	if SSLCertFile != "" {
		err = server.ListenAndServeTLS(SSLCertFile, SSLKeyFile)
	} else {
		err = server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func Param(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

func SendError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": err.Error(),
	})
}

func SendPrettyJSON(ctx context.Context, w http.ResponseWriter, data interface{}) {
	span, _ := tracer.StartSpanFromContext(ctx, "rendering_json")
	defer span.Finish()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	err := encoder.Encode(data)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Interface("data", data).Msg("unable to pretty json")
	}
}
