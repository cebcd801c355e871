package controllers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront-cart/api/responses"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-cart/pkg/errors"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

const (
	envHeader        = "X-Storefront-Env"
	readinessTimeout = 2 * time.Second
)

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency concurrently and fails with the names
// of those that did not answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)

		pingErrs := make([]error, len(names))
		var g errgroup.Group
		for i, name := range names {
			pinger := deps[name]
			if pinger == nil {
				continue
			}
			g.Go(func() error {
				pingErrs[i] = pinger.Ping(ctx)
				return nil
			})
		}
		_ = g.Wait()

		results := make(map[string]string, len(names))
		var firstErr error
		for i, name := range names {
			if pingErrs[i] == nil {
				results[name] = "ok"
				continue
			}
			results[name] = "down"
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", name, pingErrs[i])
			}
		}

		if firstErr != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, firstErr, "dependency unavailable").
				WithDetails(results))
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": results})
	}
}
