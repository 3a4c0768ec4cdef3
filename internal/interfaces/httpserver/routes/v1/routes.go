package v1

import (
	"github.com/gin-gonic/gin"

	"vodflow/stream-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")
	group.POST("/streams", r.handlers.Stream.Publish)
	group.POST("/streams/prepare-upload", r.handlers.Stream.PrepareUpload)
	group.GET("/streams/:episode_id/:language_tag", r.handlers.Stream.Playback)
	group.POST("/streams/:episode_id/:language_tag/refresh", r.handlers.Stream.Refresh)
}
