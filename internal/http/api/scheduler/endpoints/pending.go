package endpoints

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/http/api"
	"github.com/Nixie-Tech-LLC/irrigo/internal/http/api/scheduler/packets"
	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

const defaultRepeatInterval = 60

func (c *SessionController) updatePending(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.PendingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	u := scheduler.PendingUpdate{
		Name:          req.Name,
		LightsOnTime:  req.LightsOn,
		LightsOffTime: req.LightsOff,
		RelayMask:     req.RelayMask,
	}
	if req.Relays != nil {
		mask, err := scheduler.MaskFromRelays(req.Relays)
		if err != nil {
			return nil, api.FromError(err)
		}
		u.RelayMask = &mask
	}
	if err := s.UpdatePending(ctx.Request.Context(), u); err != nil {
		return nil, api.FromError(err)
	}
	return s.View(), nil
}

func (c *SessionController) addEvent(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.AddEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	interval := defaultRepeatInterval
	if req.RepeatInterval != nil {
		interval = *req.RepeatInterval
	}

	added, err := s.AddEvent(ctx.Request.Context(), req.Time, req.Duration, req.RepeatCount, interval)
	if err != nil {
		return nil, api.FromError(err)
	}
	if skipped := req.RepeatCount + 1 - added; skipped > 0 {
		log.Debug().Str("session", s.ID()).Int("skipped", skipped).Msg("[pending] repeats past midnight dropped")
	}
	return packets.AddEventResponse{Added: added, Session: s.View()}, nil
}

func (c *SessionController) updateEvent(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	idx, apiErr := indexParam(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.UpdateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if err := s.UpdateEvent(ctx.Request.Context(), idx, req.Time, req.Duration); err != nil {
		return nil, api.FromError(err)
	}
	return s.View(), nil
}

func (c *SessionController) deleteEvent(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	idx, apiErr := indexParam(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := s.DeleteEvent(ctx.Request.Context(), idx); err != nil {
		return nil, api.FromError(err)
	}
	return s.View(), nil
}

func (c *SessionController) getDraft(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	draft, err := s.PendingDraft(ctx.Request.Context())
	if err != nil {
		return nil, api.FromError(err)
	}
	return packets.DraftResponse{Draft: draft}, nil
}

func (c *SessionController) resumeDraft(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := s.Resume(ctx.Request.Context()); err != nil {
		return nil, api.FromError(err)
	}
	return s.View(), nil
}

func (c *SessionController) discardDraft(ctx *gin.Context) (any, *api.Error) {
	s, apiErr := session(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := s.Discard(ctx.Request.Context()); err != nil {
		return nil, api.FromError(err)
	}
	return s.View(), nil
}
