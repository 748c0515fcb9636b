package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/shopkit/api/responses"
	"github.com/angelmondragon/shopkit/pkg/config"
	pkgerrors "github.com/angelmondragon/shopkit/pkg/errors"
	"github.com/angelmondragon/shopkit/pkg/logger"
)

const envHeader = "X-Shopkit-Env"

type storePinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, store storePinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		if store != nil {
			if err := store.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeRemote, err, "document store unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
