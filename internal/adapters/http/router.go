package http

import (
	"context"
	"net/http"
	"slices"

	"github.com/dkeye/castrelay/internal/adapters/signal"
	"github.com/dkeye/castrelay/internal/app/orch"
	"github.com/dkeye/castrelay/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const sessionRoomKey = "room"

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

type createRoomRequest struct {
	ID string `json:"id"`
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, ctl *signal.SignalWSController) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("RelaySessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": len(o.Rooms()), "sockets": ctl.Hub.Count()})
	})

	api := r.Group("/api")

	api.GET("/whoami", func(c *gin.Context) {
		sess := sessions.Default(c)
		room, _ := sess.Get(sessionRoomKey).(string)
		c.JSON(http.StatusOK, gin.H{"client_token": c.GetString("client_token"), "room": room})
	})

	rooms := api.Group("/rooms")
	rooms.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.Rooms()})
	})
	rooms.POST("", func(c *gin.Context) {
		var req createRoomRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
				return
			}
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		created := o.CreateRoom(req.ID)

		sess := sessions.Default(c)
		sess.Set(sessionRoomKey, req.ID)
		if err := sess.Save(); err != nil {
			log.Warn().Str("module", "adapters.http").Err(err).Msg("session save failed")
		}

		status := http.StatusCreated
		if !created {
			status = http.StatusOK
		}
		c.JSON(status, gin.H{"id": req.ID, "created": created})
	})
	rooms.GET("/:id", func(c *gin.Context) {
		room, ok := o.Room(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":        room.ID,
			"senderId":  room.SenderID,
			"viewerIds": room.ViewerIDs,
			"hasOffer":  room.SenderSDP != "",
		})
	})
	rooms.DELETE("/:id", func(c *gin.Context) {
		id := c.Param("id")
		if _, ok := o.Room(id); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		evicted := o.EvictRoom(id)
		ctl.Hub.CloseAll(evicted)
		log.Info().Str("module", "adapters.http").Str("room", id).Int("evicted", len(evicted)).Msg("room deleted")
		c.JSON(http.StatusOK, gin.H{"id": id, "evicted": evicted})
	})
	rooms.GET("/:id/connections/:cid", func(c *gin.Context) {
		cid := c.Param("cid")
		room, ok := o.Room(c.Param("id"))
		if !ok || (room.SenderID != cid && !slices.Contains(room.ViewerIDs, cid)) {
			c.JSON(http.StatusNotFound, gin.H{"error": "connection not found"})
			return
		}
		conn, ok := o.Connection(cid)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "connection not found"})
			return
		}
		c.JSON(http.StatusOK, conn)
	})

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
