// Package handlers implements the HTTP API over the notification
// engine. Routes are registered by the app router; handlers push
// errors through the centralized error-handler middleware.
package handlers

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"tribe-notify.io/notify/internal/api/middleware"
	"tribe-notify.io/notify/internal/notification"
	"tribe-notify.io/notify/internal/pkg/worker"
	"tribe-notify.io/notify/internal/repository"
	"tribe-notify.io/notify/internal/service"
)

// Server holds all API handler dependencies.
type Server struct {
	pool       *pgxpool.Pool
	store      *repository.Store
	engine     *notification.Engine
	prefTokens *service.PreferenceTokenManager
	pools      *worker.Pools
	jwtCfg     middleware.JWTConfig
}

// ServerDeps holds all dependencies for creating a Server.
// Manual DI, no Wire/Dig.
type ServerDeps struct {
	Pool       *pgxpool.Pool
	Store      *repository.Store
	Engine     *notification.Engine
	PrefTokens *service.PreferenceTokenManager
	Pools      *worker.Pools
	JWTCfg     middleware.JWTConfig
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		pool:       deps.Pool,
		store:      deps.Store,
		engine:     deps.Engine,
		prefTokens: deps.PrefTokens,
		pools:      deps.Pools,
		jwtCfg:     deps.JWTCfg,
	}
}

// parentFromCtx extracts the authenticated parent ID from the request
// context. All scoped handlers use this instead of trusting the path.
func parentFromCtx(c interface{ GetString(any) string }) string {
	return c.GetString("parent_id")
}
