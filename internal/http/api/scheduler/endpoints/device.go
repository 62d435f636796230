package endpoints

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/http/api"
	"github.com/Nixie-Tech-LLC/irrigo/internal/http/api/scheduler/packets"
	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

// Device is the control surface of the controller beyond load and save.
type Device interface {
	Status(ctx context.Context) (model.Status, error)
	Activate(ctx context.Context) (model.SaveResult, error)
	Deactivate(ctx context.Context) (model.SaveResult, error)
	ManualRelay(ctx context.Context, m model.ManualRelay) (model.SaveResult, error)
}

type DeviceController struct {
	device   Device
	gateway  scheduler.Gateway
	registry *scheduler.Registry
}

// DeviceModule mounts /device/*. Status is enriched from ?session=<id> when
// given, otherwise from a fresh load through gateway.
func DeviceModule(dev Device, gateway scheduler.Gateway, reg *scheduler.Registry) api.Module {
	ctl := &DeviceController{device: dev, gateway: gateway, registry: reg}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/device/status", ctl.status)
		c.POST("/device/activate", ctl.activate)
		c.POST("/device/deactivate", ctl.deactivate)
		c.POST("/device/manual", ctl.manual)
	})
}

func (c *DeviceController) status(ctx *gin.Context) (any, *api.Error) {
	st, err := c.device.Status(ctx.Request.Context())
	if err != nil {
		return nil, api.FromError(err)
	}

	if id := ctx.Query("session"); id != "" {
		s, ok := c.registry.Get(id)
		if !ok {
			return nil, api.NotFound("session not found")
		}
		return s.EnrichStatus(st), nil
	}

	tmp := scheduler.NewSession(scheduler.Options{Gateway: c.gateway})
	if err := tmp.Load(ctx.Request.Context()); err != nil {
		log.Warn().Err(err).Msg("[device] status returned without enrichment")
		return st, nil
	}
	return tmp.EnrichStatus(st), nil
}

func (c *DeviceController) activate(ctx *gin.Context) (any, *api.Error) {
	res, err := c.device.Activate(ctx.Request.Context())
	if err != nil {
		return nil, api.FromError(err)
	}
	log.Info().Msg("[device] scheduler activated")
	return res, nil
}

func (c *DeviceController) deactivate(ctx *gin.Context) (any, *api.Error) {
	res, err := c.device.Deactivate(ctx.Request.Context())
	if err != nil {
		return nil, api.FromError(err)
	}
	log.Info().Msg("[device] scheduler deactivated")
	return res, nil
}

func (c *DeviceController) manual(ctx *gin.Context) (any, *api.Error) {
	var req packets.ManualRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	res, err := c.device.ManualRelay(ctx.Request.Context(), model.ManualRelay{Relay: *req.Relay, Duration: req.Duration})
	if err != nil {
		return nil, api.FromError(err)
	}
	log.Info().Int("relay", *req.Relay).Int("duration", req.Duration).Msg("[device] manual watering")
	return res, nil
}
