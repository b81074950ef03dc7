package relay

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/filmgrain/groupwatch/internal/config"
	"github.com/filmgrain/groupwatch/internal/domain"
)

type associateBody struct {
	MediaAuthToken string `json:"mediaAuthToken" binding:"required"`
	RoomKey        string `json:"roomKey" binding:"required"`
}

// SetupRouter wires the relay's HTTP surface: the websocket channel, the
// room-association endpoint, and read-only room listing.
func SetupRouter(ctx context.Context, cfg *config.Config, manager *Manager) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	ws := NewWSHandler(manager, cfg.Secret, cfg.SendBuffer, cfg.ReadLimit, cfg.WriteTimeout)
	go ws.RunSnapshots(ctx, cfg.SnapshotPeriod)

	r.GET("/ws/rooms/:room", func(c *gin.Context) {
		ws.Handle(ctx, c)
	})

	r.POST("/groupwatch/associate", func(c *gin.Context) {
		var body associateBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
		if err := manager.Associate(domain.RoomKey(body.RoomKey), body.MediaAuthToken); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrAlreadyAssociated) {
				status = http.StatusConflict
			} else if errors.Is(err, ErrEmptyAssociationKey) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.GET("/groupwatch/resolve/:room", func(c *gin.Context) {
		mediaToken, err := manager.Resolve(domain.RoomKey(c.Param("room")))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"mediaAuthToken": mediaToken})
	})

	r.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, manager.List())
	})

	log.Info().Str("module", "relay.router").Msg("router setup")
	return r
}
