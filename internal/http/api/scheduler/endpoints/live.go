package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/irrigo/internal/http/api"
	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

// MarkerSource is satisfied by *scheduler.Marker.
type MarkerSource interface {
	Position() model.Marker
}

// MarkerModule mounts GET /marker. With ?session=<id> the position is given on
// that session's wall clock instead of the server's.
func MarkerModule(m MarkerSource, reg *scheduler.Registry) api.Module {
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/marker", func(ctx *gin.Context) (any, *api.Error) {
			pos := m.Position()
			id := ctx.Query("session")
			if id == "" {
				return pos, nil
			}
			s, ok := reg.Get(id)
			if !ok {
				return nil, api.NotFound("session not found")
			}
			return s.Marker(pos), nil
		})
	})
}

// Upgrader is satisfied by *notify.Hub.
type Upgrader interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// LiveModule mounts GET /scheduler as a WebSocket feed of notices and marker ticks.
func LiveModule(hub Upgrader) api.Module {
	return api.ModuleFunc(func(c *api.Controller) {
		c.Raw(http.MethodGet, "/scheduler", func(ctx *gin.Context) {
			hub.ServeWS(ctx.Writer, ctx.Request)
		})
	})
}
