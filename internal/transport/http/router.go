package arenahttp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"yudha/internal/ai"
	"yudha/internal/arena"
	"yudha/internal/store/decisionlog"
	"yudha/internal/store/gormstore"
	"yudha/internal/treasury"

	"github.com/gin-gonic/gin"
)

// Router holds the API dependencies.
type Router struct {
	engine       *arena.Engine
	treasury     *treasury.Manager
	history      *decisionlog.DecisionStore
	events       *gormstore.GormStore
	aiConfigured bool
	chainEnabled bool
}

func NewRouter(cfg ServerConfig) *Router {
	return &Router{
		engine:       cfg.Engine,
		treasury:     cfg.Treasury,
		history:      cfg.History,
		events:       cfg.Events,
		aiConfigured: cfg.AIConfigured,
		chainEnabled: cfg.ChainEnabled,
	}
}

// Register mounts all routes on the gin engine.
func (r *Router) Register(router *gin.Engine) {
	router.GET("/", r.handleBanner)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/health", r.handleHealth)

	agents := router.Group("/api/agents")
	agents.GET("/personalities", r.handlePersonalities)
	agents.GET("/dashboard-state", r.handleDashboardState)
	agents.GET("/decisions", r.handleBatchDecisions)
	agents.GET("/:agentKey/decision", r.handleSingleDecision)

	router.GET("/api/history", r.handleHistory)
	router.GET("/api/history/stats", r.handleHistoryStats)
	router.GET("/api/treasury", r.handleTreasury)
	router.GET("/api/treasury/stats", r.handleTreasuryStats)
}

func (r *Router) handleBanner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":   "yudha arena",
		"status": "running",
		"agents": len(r.engine.Personas()),
	})
}

func (r *Router) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"blockchain": r.chainEnabled,
		"ai":         r.aiConfigured,
	})
}

func (r *Router) handlePersonalities(c *gin.Context) {
	personas := r.engine.Personas()
	out := make(map[string]gin.H, len(personas))
	for _, p := range personas {
		out[p.Key] = gin.H{
			"name":        p.Name,
			"personality": p.Personality,
			"strategy":    p.Strategy,
			"protocol":    p.Protocol,
		}
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) handleDashboardState(c *gin.Context) {
	if r.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "decision history not enabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	keys := make([]string, 0, len(r.engine.Personas()))
	for _, p := range r.engine.Personas() {
		keys = append(keys, p.Key)
	}
	state, err := r.history.DashboardState(c.Request.Context(), keys, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": state})
}

// handleBatchDecisions runs one cycle for every persona. The response is
// always 200; per-agent failures land in their own slots.
func (r *Router) handleBatchDecisions(c *gin.Context) {
	entries := r.engine.RunBatch(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"agents": entries})
}

func (r *Router) handleSingleDecision(c *gin.Context) {
	agentKey := c.Param("agentKey")
	result, err := r.engine.RunSingle(c.Request.Context(), agentKey)
	if err != nil {
		switch {
		case errors.Is(err, arena.ErrUnknownAgent):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ai.ErrUnavailable), errors.Is(err, ai.ErrMalformed):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r *Router) handleHistory(c *gin.Context) {
	if r.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "decision history not enabled"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	from, _ := strconv.ParseInt(c.DefaultQuery("from", "0"), 10, 64)
	to, _ := strconv.ParseInt(c.DefaultQuery("to", "0"), 10, 64)
	query := decisionlog.HistoryQuery{
		Page:     page,
		Limit:    limit,
		AgentKey: strings.TrimSpace(c.Query("agent_key")),
		From:     from,
		To:       to,
	}
	result, err := r.history.ListDecisions(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r *Router) handleHistoryStats(c *gin.Context) {
	if r.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "decision history not enabled"})
		return
	}
	stats, err := r.history.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleTreasury returns accumulator totals plus on-chain ProfitSwept logs
// within the optional block window.
func (r *Router) handleTreasury(c *gin.Context) {
	if r.treasury == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "treasury not enabled"})
		return
	}
	var fromBlock, toBlock *int64
	if raw := strings.TrimSpace(c.Query("fromBlock")); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			fromBlock = &v
		}
	}
	if raw := strings.TrimSpace(c.Query("toBlock")); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			toBlock = &v
		}
	}
	c.JSON(http.StatusOK, r.treasury.StatsWithEvents(c.Request.Context(), fromBlock, toBlock))
}

func (r *Router) handleTreasuryStats(c *gin.Context) {
	if r.treasury == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "treasury not enabled"})
		return
	}
	stats := r.treasury.Stats()
	out := gin.H{
		"totalProfits":    stats.TotalProfits,
		"usdc":            stats.USDC,
		"treasuryAddress": stats.TreasuryAddress,
		"onChainEnabled":  stats.OnChainEnabled,
	}
	if r.events != nil {
		if recent, err := r.events.RecentTreasuryEvents(50); err == nil {
			out["recentEvents"] = recent
		}
	}
	c.JSON(http.StatusOK, out)
}
