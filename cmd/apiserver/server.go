// Reference HTTP binding of §6.1-6.4 over the coordinator, grounded on
// codeready-toolchain-tarsy's pkg/api (gin.Context handlers, a background
// goroutine per submission with a stored cancel func, gin.H JSON bodies)
// and its cmd/tarsy/main.go gin.Default()/health-endpoint wiring. The
// teacher's WSHub.Broadcast("session.created", ...) push-per-session-event
// pattern becomes a websocket bridge over internal/progress.Hub here,
// adapted from internal/websocket/hub.go's upgrade-and-pump shape.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/osint-pipeline/investigator/internal/coordinator"
	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/perr"
	"github.com/osint-pipeline/investigator/internal/progress"
	"github.com/osint-pipeline/investigator/internal/store"
	"github.com/osint-pipeline/investigator/internal/telemetry"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the HTTP API surface over one Coordinator.
type Server struct {
	router    *gin.Engine
	coord     *coordinator.Coordinator
	store     store.Store
	hub       *progress.Hub
	telemetry *telemetry.Collector

	mu      sync.Mutex
	cancels map[string]context.CancelFunc // investigation_id -> cancel, while in flight
}

// NewServer wires a Server and registers every route.
func NewServer(coord *coordinator.Coordinator, st store.Store, hub *progress.Hub, tel *telemetry.Collector) *Server {
	s := &Server{
		router:    gin.Default(),
		coord:     coord,
		store:     st,
		hub:       hub,
		telemetry: tel,
		cancels:   make(map[string]context.CancelFunc),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	if s.telemetry != nil {
		s.router.GET("/metrics", gin.WrapH(s.telemetry.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	v1.POST("/investigations", s.submitInvestigationHandler)
	v1.GET("/investigations", s.listInvestigationsHandler)
	v1.GET("/investigations/:id", s.getInvestigationHandler)
	v1.GET("/investigations/:id/report", s.getReportHandler)
	v1.POST("/investigations/:id/cancel", s.cancelInvestigationHandler)
	v1.GET("/investigations/:id/progress", s.progressWebsocketHandler)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// submitInvestigationHandler handles POST /api/v1/investigations (§6.1).
// The coordinator run itself drives the seed through validateSeed, so
// this handler's only job is to assign IDs, start the run in the
// background, and register a cancel func for it.
func (s *Server) submitInvestigationHandler(c *gin.Context) {
	var seed models.SeedInput
	if err := c.ShouldBindJSON(&seed); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if seed.InvestigationID == "" {
		seed.InvestigationID = uuid.NewString()
	}
	if seed.SubmittedAt.IsZero() {
		seed.SubmittedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[seed.InvestigationID] = cancel
	s.mu.Unlock()

	go s.runInvestigation(ctx, cancel, seed)

	c.JSON(http.StatusAccepted, gin.H{
		"investigation_id":     seed.InvestigationID,
		"status":               models.StatusCreated,
		"estimated_completion": time.Now().UTC().Add(2 * time.Hour),
	})
}

func (s *Server) runInvestigation(ctx context.Context, cancel context.CancelFunc, seed models.SeedInput) {
	defer cancel()
	defer func() {
		s.mu.Lock()
		delete(s.cancels, seed.InvestigationID)
		s.mu.Unlock()
	}()

	record := s.coord.Run(ctx, seed)

	if s.telemetry != nil {
		s.telemetry.ObserveInvestigationTerminal(string(record.Status))
	}
	if s.store != nil {
		_ = s.store.SaveInvestigation(context.Background(), record)
		if record.Report != nil {
			_ = s.store.SaveReport(context.Background(), record.InvestigationID, *record.Report)
		}
	}
}

// getInvestigationHandler handles GET /api/v1/investigations/:id (§6.2).
// The store is the source of truth once an investigation is terminal, so
// this always reads through it rather than keeping an in-memory index.
func (s *Server) getInvestigationHandler(c *gin.Context) {
	id := c.Param("id")
	record, err := s.store.GetInvestigation(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	record.Report = nil // status responses omit the report, see §6.3
	c.JSON(http.StatusOK, record)
}

// getReportHandler handles GET /api/v1/investigations/:id/report (§6.3).
func (s *Server) getReportHandler(c *gin.Context) {
	id := c.Param("id")
	record, err := s.store.GetInvestigation(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	if record.Status != models.StatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "not_ready"})
		return
	}

	report, err := s.store.GetReport(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) listInvestigationsHandler(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	list, err := s.store.ListInvestigations(c.Request.Context(), limit, offset)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"investigations": list})
}

// cancelInvestigationHandler cancels an in-flight investigation. The
// coordinator holds no registry of its own (cancellation is the caller's
// responsibility, see internal/coordinator's doc comment); this registry
// is that caller.
func (s *Server) cancelInvestigationHandler(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "investigation is not in flight"})
		return
	}
	cancel()
	c.JSON(http.StatusOK, gin.H{"status": "cancelling"})
}

// progressWebsocketHandler handles GET /api/v1/investigations/:id/progress
// (§6.4): upgrades to a websocket and relays every progress.Hub event for
// the investigation until the feed closes (investigation reaches a
// terminal status) or the client disconnects.
func (s *Server) progressWebsocketHandler(c *gin.Context) {
	id := c.Param("id")

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.hub.Subscribe(id)
	defer sub.Unsubscribe()

	for event := range sub.Events {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
		if event.Status.Terminal() {
			return
		}
	}
}

func writeStoreError(c *gin.Context, err error) {
	switch {
	case perr.Is(err, perr.KindNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case perr.Is(err, perr.KindNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": "not_ready"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
