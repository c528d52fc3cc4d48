// Package server exposes a runner over HTTP and streams its state to
// websocket clients.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/runner"
	"github.com/pthm-cable/biome/store"
)

// maxConfigBytes bounds uploaded biome documents.
const maxConfigBytes = 1 << 20

// Server routes HTTP and websocket requests to a runner.
type Server struct {
	runner *runner.Runner
	store  *store.Store // nil disables save slots
	hub    *Hub
	router *gin.Engine
}

// New creates a server for r. Snapshots are pushed to websocket clients
// at most once per broadcastInterval.
func New(r *runner.Runner, st *store.Store, broadcastInterval time.Duration) *Server {
	s := &Server{
		runner: r,
		store:  st,
		hub:    NewHub(broadcastInterval, r.Snapshot),
	}
	r.Subscribe(s.hub.Publish)
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api")
	api.GET("/state", s.getState)
	api.GET("/history", s.getHistory)
	api.GET("/config", s.exportConfig)
	api.POST("/config", s.importConfig)
	api.GET("/schema", s.getSchema)

	api.POST("/reset", s.reset)
	api.POST("/play", s.play)
	api.POST("/pause", s.pause)
	api.POST("/step", s.step)
	api.PUT("/speed", s.setSpeed)

	slots := api.Group("/slots", s.requireStore)
	slots.GET("", s.listSlots)
	slots.POST("", s.saveSlot)
	slots.POST("/:name/load", s.loadSlot)
	slots.DELETE("/:name", s.deleteSlot)

	r.GET("/ws", s.handleWebsocket)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func errorJSON(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// controls is the response of every control endpoint.
func (s *Server) controls(c *gin.Context) {
	snap := s.runner.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"playing": snap.Playing,
		"speed":   snap.Speed,
		"steps":   snap.Steps,
		"time":    snap.Time,
		"seed":    s.runner.Seed(),
	})
}

// ---------- State ----------

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.runner.Snapshot())
}

func (s *Server) getHistory(c *gin.Context) {
	c.JSON(http.StatusOK, s.runner.History())
}

// ---------- Config ----------

func (s *Server) exportConfig(c *gin.Context) {
	biome := s.runner.Config()
	data, err := biome.MarshalJSONIndent()
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+biome.ExportFilename()+`"`)
	c.Data(http.StatusOK, "application/json", data)
}

func (s *Server) importConfig(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxConfigBytes))
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	if err := s.runner.Load(data); err != nil {
		var loadErr *config.LoadError
		if errors.As(err, &loadErr) {
			errorJSON(c, http.StatusBadRequest, err)
			return
		}
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, s.runner.Config())
}

func (s *Server) getSchema(c *gin.Context) {
	data, err := config.SchemaJSON()
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "application/schema+json", data)
}

// ---------- Controls ----------

func (s *Server) reset(c *gin.Context) {
	if err := s.runner.Reset(); err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	s.controls(c)
}

func (s *Server) play(c *gin.Context) {
	s.runner.Play()
	s.controls(c)
}

func (s *Server) pause(c *gin.Context) {
	s.runner.Pause()
	s.controls(c)
}

func (s *Server) step(c *gin.Context) {
	if err := s.runner.StepOnce(); err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	s.controls(c)
}

type speedRequest struct {
	Multiplier float64 `json:"multiplier" binding:"required"`
}

func (s *Server) setSpeed(c *gin.Context) {
	var req speedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	if err := s.runner.SetSpeed(req.Multiplier); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	s.controls(c)
}

// ---------- Save slots ----------

var errNoStore = errors.New("save slots are disabled")

func (s *Server) requireStore(c *gin.Context) {
	if s.store == nil {
		errorJSON(c, http.StatusServiceUnavailable, errNoStore)
		return
	}
	c.Next()
}

func (s *Server) listSlots(c *gin.Context) {
	slots, err := s.store.List(c.Request.Context())
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

type saveSlotRequest struct {
	Name string `json:"name" binding:"required"`
}

// saveSlot stores the running biome under the requested name.
func (s *Server) saveSlot(c *gin.Context) {
	var req saveSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	if err := s.store.Save(c.Request.Context(), req.Name, s.runner.Config()); err != nil {
		if errors.Is(err, store.ErrInvalidSlotName) {
			errorJSON(c, http.StatusBadRequest, err)
			return
		}
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": req.Name})
}

func (s *Server) loadSlot(c *gin.Context) {
	slot, err := s.store.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		slotError(c, err)
		return
	}
	if err := s.runner.LoadBiome(slot.Config); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, s.runner.Config())
}

func (s *Server) deleteSlot(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Param("name")); err != nil {
		slotError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func slotError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrSlotNotFound) {
		errorJSON(c, http.StatusNotFound, err)
		return
	}
	errorJSON(c, http.StatusInternalServerError, err)
}
