// Package auth provides the account and token module.
package auth

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"flowtrack/internal/auth/handler"
	"flowtrack/internal/auth/repository"
	"flowtrack/internal/auth/service"
	apphttp "flowtrack/internal/http"
	"flowtrack/platform/config"
	"flowtrack/platform/logger"
	"flowtrack/platform/validator"
)

type Module struct {
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, log)
	return &Module{handler: handler.New(svc, val)}
}

func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes registers the module's routes. Credential endpoints sit
// behind the stricter auth rate limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/auth")
	public.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(public)

	protected := ctx.Protected.Group("/auth")
	m.handler.RegisterProtectedRoutes(protected)
}

var _ apphttp.Module = (*Module)(nil)
