package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/hydroaid/hydroaid-backend/internal/api/http"
	"github.com/hydroaid/hydroaid-backend/internal/api/http/middleware"
	"github.com/hydroaid/hydroaid-backend/internal/auth"
	authmw "github.com/hydroaid/hydroaid-backend/internal/auth/middleware"
	realtimehttp "github.com/hydroaid/hydroaid-backend/internal/realtime/http"
	recordshttp "github.com/hydroaid/hydroaid-backend/internal/records/http"
	"github.com/hydroaid/hydroaid-backend/internal/records/service"
	statshttp "github.com/hydroaid/hydroaid-backend/internal/stats/http"
	statsvc "github.com/hydroaid/hydroaid-backend/internal/stats/service"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	CORSOrigins []string

	Store    httpapi.Pinger
	Realtime httpapi.Pinger

	Engine      *statsvc.Engine
	Coordinator *service.Coordinator
	Gateway     *realtimehttp.Gateway

	Verifier auth.TokenVerifier
	Policy   *auth.Policy
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(corsConfig(dep.CORSOrigins)))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Store, dep.Realtime)
	healthHandler.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	statshttp.New(dep.Engine).Register(api)
	recordshttp.New(dep.Coordinator).Register(api)

	rt := api.Group("")
	rt.Use(authmw.WithIdentity(dep.Verifier, dep.Policy))
	dep.Gateway.Register(rt)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-Id", "X-User-Id", "X-User-Email", "X-User-Role", "X-Department-Id"},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
