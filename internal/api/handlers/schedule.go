// Package handlers implements the gin HTTP handlers exposing the
// schedule optimizer (spec.md §6, SPEC_FULL.md §6).
package handlers

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/knaveofdiamonds/tablefit/internal/cache"
	"github.com/knaveofdiamonds/tablefit/internal/catalog"
	"github.com/knaveofdiamonds/tablefit/internal/report"
	"github.com/knaveofdiamonds/tablefit/internal/roster"
	"github.com/knaveofdiamonds/tablefit/internal/schedule"
	"github.com/knaveofdiamonds/tablefit/internal/solver"
	"github.com/knaveofdiamonds/tablefit/internal/websocket"
	"github.com/knaveofdiamonds/tablefit/pkg/database"
	"github.com/knaveofdiamonds/tablefit/pkg/logger"
)

// ErrorResponse is the JSON error shape returned on request failure.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// ScheduleRequest is the body of POST /api/v1/schedule.
type ScheduleRequest struct {
	Catalog     []catalog.Record `json:"catalog"`
	Players     []roster.Player  `json:"players"`
	Sessions    []roster.Session `json:"sessions"`
	SharedGames []string         `json:"shared_games,omitempty"`
	TableLimit  int              `json:"table_limit,omitempty"`
}

// ScheduleResponse is the body of a successful schedule solve.
type ScheduleResponse struct {
	RunID       string             `json:"run_id"`
	Result      *schedule.Result   `json:"result"`
	Diagnostics report.Diagnostics `json:"diagnostics"`
}

// ScheduleHandler exposes the optimizer over HTTP.
type ScheduleHandler struct {
	cache        *cache.ScheduleCache
	wsHub        *websocket.Hub
	catalogRepo  *database.CatalogRepository
	scheduleRuns *database.ScheduleRunRepository
	cfg          ScheduleConfig
	logger       *logrus.Entry
}

// ScheduleConfig is the subset of pkg/config.Config the handler needs,
// kept narrow so this package doesn't depend on pkg/config directly.
type ScheduleConfig struct {
	SolverMaxNodes    int64
	SolverTimeout     time.Duration
	DefaultTableLimit int
	CacheTTL          time.Duration
}

// NewScheduleHandler constructs a ScheduleHandler. catalogRepo may be nil,
// in which case requests must always supply their own catalog.
func NewScheduleHandler(c *cache.ScheduleCache, wsHub *websocket.Hub, catalogRepo *database.CatalogRepository, scheduleRuns *database.ScheduleRunRepository, cfg ScheduleConfig, logger *logrus.Entry) *ScheduleHandler {
	return &ScheduleHandler{cache: c, wsHub: wsHub, catalogRepo: catalogRepo, scheduleRuns: scheduleRuns, cfg: cfg, logger: logger}
}

// recordRun writes a schedule_runs audit row, logging rather than failing
// the request if persistence itself has trouble — the solve already
// happened and the caller is waiting on its result, not this side effect.
func (h *ScheduleHandler) recordRun(logEntry *logrus.Entry, cacheKey, status string, objective float64) {
	if h.scheduleRuns == nil {
		return
	}
	err := h.scheduleRuns.Create(database.ScheduleRunRecord{
		RequestHash: cacheKey,
		Status:      status,
		Objective:   objective,
	})
	if err != nil {
		logEntry.WithError(err).Warn("failed to record schedule run")
	}
}

// resolveCatalogRecords returns the request's own catalog records, falling
// back to the persisted default catalog (pkg/database.CatalogRepository)
// when the request didn't supply one — letting callers rely on a
// previously-published catalog instead of inlining it on every request.
func (h *ScheduleHandler) resolveCatalogRecords(req ScheduleRequest) ([]catalog.Record, error) {
	if len(req.Catalog) > 0 || h.catalogRepo == nil {
		return req.Catalog, nil
	}

	entries, err := h.catalogRepo.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("loading default catalog: %w", err)
	}

	records := make([]catalog.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, catalog.Record{
			Name:        e.Name,
			MinPlayers:  e.MinPlayers,
			MaxPlayers:  e.MaxPlayers,
			MinPlaytime: e.MinPlaytime,
			MaxPlaytime: e.MaxPlaytime,
			Popularity:  e.Popularity,
		})
	}
	return records, nil
}

// PostSchedule handles POST /api/v1/schedule.
func (h *ScheduleHandler) PostSchedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
			Details: map[string]string{"validation_error": err.Error()},
		})
		return
	}

	cacheKey := h.cacheKey(req)
	if cached, err := h.cache.Get(c.Request.Context(), cacheKey); err == nil && cached != nil {
		h.logger.WithField("cache_key", cacheKey).Info("returning cached schedule result")
		c.JSON(http.StatusOK, ScheduleResponse{Result: cached})
		return
	}

	catalogRecords, err := h.resolveCatalogRecords(req)
	if err != nil {
		logEntryFallback := h.logger.WithField("cache_key", cacheKey)
		logEntryFallback.WithError(err).Error("failed to load default catalog")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
		return
	}

	cat, err := catalog.New(catalogRecords)
	if err != nil {
		var malformed *catalog.MalformedGameError
		if errors.As(err, &malformed) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: err.Error(),
				Code:  "INVALID_CATALOG",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
		return
	}

	tableLimit := req.TableLimit
	if tableLimit == 0 {
		tableLimit = h.cfg.DefaultTableLimit
	}

	runID := uuid.NewString()
	requestID := c.GetHeader("X-Request-Id")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logEntry := logger.WithRequestContext(requestID, runID)

	engine := solver.New(
		solver.WithMaxNodes(h.cfg.SolverMaxNodes),
		solver.WithLogger(logEntry),
		solver.WithProgress(25_000, func(stats solver.Stats, best float64) {
			h.wsHub.BroadcastProgress(websocket.ProgressUpdate{
				RunID:         runID,
				NodesExplored: stats.NodesExplored,
				ElapsedMillis: stats.Elapsed.Milliseconds(),
				BestObjective: best,
			})
		}),
	)
	sc := schedule.NewScheduler(engine, logEntry)

	ctx := c.Request.Context()
	if h.cfg.SolverTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.SolverTimeout)
		defer cancel()
	}

	result, err := sc.Run(ctx, schedule.Input{
		Catalog:     cat,
		Players:     req.Players,
		Sessions:    req.Sessions,
		SharedGames: req.SharedGames,
		TableLimit:  tableLimit,
	})
	if err != nil {
		var notSolvable *schedule.NotSolvableError
		if errors.As(err, &notSolvable) {
			h.recordRun(logEntry, cacheKey, strings.ToLower(notSolvable.Reason), 0)
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error: err.Error(),
				Code:  "SCHEDULE_INFEASIBLE",
			})
			return
		}
		logEntry.WithError(err).Error("schedule solve failed")
		h.recordRun(logEntry, cacheKey, "error", 0)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "INTERNAL"})
		return
	}

	h.wsHub.BroadcastProgress(websocket.ProgressUpdate{RunID: runID, Done: true, BestObjective: result.Objective})

	if err := h.cache.Set(c.Request.Context(), cacheKey, result, h.cfg.CacheTTL); err != nil {
		logEntry.WithError(err).Warn("failed to cache schedule result")
	}

	h.recordRun(logEntry, cacheKey, "optimal", result.Objective)

	diag := report.Compute(result, req.Players, cat)

	c.JSON(http.StatusOK, ScheduleResponse{RunID: runID, Result: result, Diagnostics: diag})
}

// GetCacheStatus handles GET /api/v1/schedule/cache-status.
func (h *ScheduleHandler) GetCacheStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.Status(c.Request.Context()))
}

func (h *ScheduleHandler) cacheKey(req ScheduleRequest) string {
	hash := md5.New()
	fmt.Fprintf(hash, "%+v", req)
	return fmt.Sprintf("%x", hash.Sum(nil))
}
