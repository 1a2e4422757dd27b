// Package handlers provides HTTP handlers for the reactivities gateway.
//
// Each handler is in its own file and implements http.Handler or exposes
// http.HandlerFunc methods. Handlers use interfaces to access server dependencies,
// avoiding circular imports.
package handlers

import (
	"context"
	"time"

	"github.com/nomis52/reactivities/config"
	"github.com/nomis52/reactivities/server/runner"
	"github.com/nomis52/reactivities/server/types"
	"github.com/nomis52/reactivities/stores/rootstore"
)

// ConfigProvider provides access to the current configuration.
type ConfigProvider interface {
	Config() *config.Config
}

// Reloader can reload its configuration.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Refresher reloads the named stores.
type Refresher interface {
	Refresh(ctx context.Context, targets []string) error
}

// RootProvider provides the current root store. The root is swapped on reload, so
// handlers fetch it per request.
type RootProvider interface {
	Root() *rootstore.Root
}

// InfoProvider provides metadata about the running server.
type InfoProvider interface {
	Properties() types.ServerProperties
	NextRefresh() *time.Time
}

// HistoryProvider reports the current refresh and the finished ones.
type HistoryProvider interface {
	RefreshStatus() runner.RunStatus
	RefreshHistory() []runner.RunStatus
}
