package endpoints

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/http/api"
	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

const defaultHistoryLimit = 50

type SaveHistory interface {
	ListSaves(ctx context.Context, limit int) ([]model.SaveRecord, error)
}

type ArchiveReader interface {
	Read(ctx context.Context, key string) (model.SchedulerState, error)
}

type HistoryController struct {
	saves   SaveHistory
	archive ArchiveReader
}

// HistoryModule mounts the save log and archived documents. Either source may
// be nil, in which case its route is not registered.
func HistoryModule(saves SaveHistory, archive ArchiveReader) api.Module {
	ctl := &HistoryController{saves: saves, archive: archive}
	return api.ModuleFunc(func(c *api.Controller) {
		if saves != nil {
			c.GET("/saves", ctl.listSaves)
		}
		if archive != nil {
			c.GET("/archive/*key", ctl.readArchive)
		}
	})
}

func (c *HistoryController) listSaves(ctx *gin.Context) (any, *api.Error) {
	limit := defaultHistoryLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, api.BadRequest("invalid limit")
		}
		limit = n
	}
	recs, err := c.saves.ListSaves(ctx.Request.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("[history] could not list saves")
		return nil, &api.Error{Code: http.StatusInternalServerError, Message: "could not list saves"}
	}
	return recs, nil
}

func (c *HistoryController) readArchive(ctx *gin.Context) (any, *api.Error) {
	key := strings.TrimPrefix(ctx.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		return nil, api.BadRequest("invalid key")
	}
	st, err := c.archive.Read(ctx.Request.Context(), key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("[history] archive read failed")
		return nil, api.NotFound("archived document not found")
	}
	return st, nil
}
