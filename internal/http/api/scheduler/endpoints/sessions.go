package endpoints

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/clock"
	"github.com/Nixie-Tech-LLC/irrigo/internal/http/api"
	"github.com/Nixie-Tech-LLC/irrigo/internal/http/api/scheduler/packets"
	"github.com/Nixie-Tech-LLC/irrigo/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

type SessionController struct {
	registry *scheduler.Registry
}

// SessionsModule mounts POST /sessions. It must be mounted without the
// session loader.
func SessionsModule(reg *scheduler.Registry) api.Module {
	ctl := &SessionController{registry: reg}
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/sessions", ctl.createSession)
	})
}

// SessionModule mounts everything under /sessions/:id. The group must carry
// middleware.SessionLoader.
func SessionModule(reg *scheduler.Registry) api.Module {
	ctl := &SessionController{registry: reg}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("", ctl.getSession)
		c.DELETE("", ctl.closeSession)
		c.POST("/reload", ctl.reload)
		c.POST("/select", ctl.selectSchedule)
		c.POST("/create", ctl.startCreate)
		c.POST("/edit", ctl.startEdit)
		c.POST("/commit", ctl.commit)
		c.POST("/cancel", ctl.cancel)
		c.DELETE("/schedules/:index", ctl.deleteSchedule)

		c.PATCH("/pending", ctl.updatePending)
		c.POST("/pending/events", ctl.addEvent)
		c.PUT("/pending/events/:index", ctl.updateEvent)
		c.DELETE("/pending/events/:index", ctl.deleteEvent)

		c.GET("/draft", ctl.getDraft)
		c.POST("/draft/resume", ctl.resumeDraft)
		c.POST("/draft/discard", ctl.discardDraft)

		c.GET("/timeline", ctl.timeline)
		c.GET("/conflicts", ctl.conflicts)
		c.GET("/active", ctl.active)
	})
}

func session(ctx *gin.Context) (*scheduler.Session, *api.Error) {
	s, ok := middleware.GetSession(ctx)
	if !ok {
		return nil, api.NotFound("session not found")
	}
	return s, nil
}

func indexParam(ctx *gin.Context) (int, *api.Error) {
	idx, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		return 0, api.BadRequest("invalid index")
	}
	return idx, nil
}

func (c *SessionController) createSession(ctx *gin.Context) (any, *api.Error) {
	var req packets.CreateSessionRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			return nil, api.BadRequest(err.Error())
		}
	}

	var zone clock.Zone = clock.Local{}
	if req.UTCOffset != nil {
		if !clock.ValidOffset(*req.UTCOffset) {
			return nil, api.BadRequest(fmt.Sprintf("utcOffset must be between %d and %d minutes", clock.MinOffset, clock.MaxOffset))
		}
		zone = clock.Fixed(*req.UTCOffset)
	}

	s, loadErr := c.registry.Create(ctx.Request.Context(), req.ClientID, zone)
	resp := packets.SessionResponse{}
	if loadErr != nil {
		log.Warn().Err(loadErr).Str("session", s.ID()).Msg("[sessions] initial load failed")
		resp.LoadError = loadErr.Error()
	}

	draft, err := s.PendingDraft(ctx.Request.Context())
	if err != nil {
		log.Warn().Err(err).Str("client", s.ClientID()).Msg("[sessions] could not read pending draft")
	}
	resp.View = s.View()
	resp.Draft = draft

	log.Info().Str("session", s.ID()).Str("client", s.ClientID()).Int("utc_offset", zone.Offset()).Msg("[sessions] created")
	return resp, nil
}

func (c *SessionController) getSession(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	return s.View(), nil
}

func (c *SessionController) closeSession(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	c.registry.Remove(s.ID())
	return gin.H{"closed": s.ID()}, nil
}

func (c *SessionController) reload(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := s.Load(ctx.Request.Context()); err != nil {
		return nil, api.FromError(err)
	}
	return s.View(), nil
}

func (c *SessionController) selectSchedule(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.IndexRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if err := s.Select(*req.Index); err != nil {
		return nil, api.FromError(err)
	}
	return s.View(), nil
}

func (c *SessionController) startCreate(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.CreateScheduleRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			return nil, api.BadRequest(err.Error())
		}
	}
	if err := s.StartCreate(ctx.Request.Context(), req.Name); err != nil {
		return nil, api.FromError(err)
	}
	return s.View(), nil
}

func (c *SessionController) startEdit(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.IndexRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if err := s.StartEdit(ctx.Request.Context(), *req.Index); err != nil {
		return nil, api.FromError(err)
	}
	return s.View(), nil
}

func (c *SessionController) commit(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	res, err := s.Commit(ctx.Request.Context())
	if err != nil {
		return nil, api.FromError(err)
	}
	log.Info().Str("session", s.ID()).Int("index", res.Index).Int("conflicts", len(res.Conflicts)).Msg("[sessions] committed")
	return packets.CommitResponse{CommitResult: res, Session: s.View()}, nil
}

func (c *SessionController) cancel(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := s.Cancel(ctx.Request.Context()); err != nil {
		return nil, api.FromError(err)
	}
	return s.View(), nil
}

func (c *SessionController) deleteSchedule(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	idx, apiErr := indexParam(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := s.DeleteSchedule(ctx.Request.Context(), idx); err != nil {
		return nil, api.FromError(err)
	}
	return s.View(), nil
}

func (c *SessionController) timeline(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	idx := -1
	if raw := ctx.Query("index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, api.BadRequest("invalid index")
		}
		idx = n
	}
	proj, err := s.Timeline(idx)
	if err != nil {
		return nil, api.FromError(err)
	}
	return proj, nil
}

func (c *SessionController) conflicts(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	return packets.ConflictsResponse{Conflicts: s.Conflicts()}, nil
}

func (c *SessionController) active(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	return packets.ActiveResponse{Schedules: s.Active()}, nil
}
