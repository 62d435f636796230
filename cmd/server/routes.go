package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/irrigo/internal/http/api"
	schedapi "github.com/Nixie-Tech-LLC/irrigo/internal/http/api/scheduler/endpoints"
	"github.com/Nixie-Tech-LLC/irrigo/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

// Services is what the routes need from main.
type Services struct {
	Registry *scheduler.Registry
	Gateway  scheduler.Gateway
	Device   schedapi.Device
	Marker   schedapi.MarkerSource
	Hub      schedapi.Upgrader
	Saves    schedapi.SaveHistory
	Archive  schedapi.ArchiveReader
}

// RegisterRoutes sets up all application routes
func RegisterRoutes(r *gin.Engine, svc Services) {
	r.Use(middleware.RequestLogger())

	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api",
	},
		schedapi.SessionsModule(svc.Registry),
		schedapi.DeviceModule(svc.Device, svc.Gateway, svc.Registry),
		schedapi.MarkerModule(svc.Marker, svc.Registry),
		schedapi.HistoryModule(svc.Saves, svc.Archive),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:     "/api/sessions/:id",
		Middleware: []gin.HandlerFunc{middleware.SessionLoader(svc.Registry)},
	},
		schedapi.SessionModule(svc.Registry),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/ws",
	},
		schedapi.LiveModule(svc.Hub),
	)
}
