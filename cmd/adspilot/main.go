// AdsPilot decision engine - polls connected ad platforms on a fixed
// cadence, asks an LLM analyst for budget/pause/resume proposals, gates
// them through a guardrail evaluator, executes the auto-approved ones,
// and serves a health/ops HTTP surface over the result.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/adspilot/core/pkg/adapter"
	"github.com/adspilot/core/pkg/adapter/mockadapter"
	"github.com/adspilot/core/pkg/analyst"
	"github.com/adspilot/core/pkg/config"
	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
	"github.com/adspilot/core/pkg/engine"
	"github.com/adspilot/core/pkg/guardrail"
	"github.com/adspilot/core/pkg/ledger"
	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "release")
	gin.SetMode(ginMode)

	log.Printf("Starting AdsPilot")
	log.Printf("HTTP Port: %s", httpPort)
	log.Printf("Config Directory: %s", *configDir)

	ctx := context.Background()

	cfg, err := config.Load(*configDir)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	stats := cfg.Stats()

	dbConfig, err := ledger.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	store, err := ledger.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	log.Println("Connected to PostgreSQL database")

	registry, ceilings, err := buildRegistry(cfg)
	if err != nil {
		log.Fatalf("Failed to build adapter registry: %v", err)
	}
	log.Printf("Registered %d platform adapter(s)", len(registry.Platforms()))

	analystClient, err := buildAnalyst(ctx)
	if err != nil {
		log.Fatalf("Failed to build analyst client: %v", err)
	}

	evaluator := guardrail.NewEvaluator(guardrail.DefaultRules)
	approvals := guardrail.NewApprovalQueue(4 * time.Hour)
	overrides := guardrail.NewOverrideStore()
	for _, o := range cfg.PerCampaignOverrides {
		overrides.Set(o)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("Warning: unknown timezone %q, defaulting to UTC", cfg.Timezone)
		loc = time.UTC
	}
	midnight := time.Now().In(loc).Truncate(24 * time.Hour)
	counters, err := store.ReconstructDailyCounters(ctx, midnight)
	if err != nil {
		log.Fatalf("Failed to reconstruct daily counters: %v", err)
	}

	holderID := getEnv("HOLDER_ID", hostnameOrFallback())
	engCfg := engine.DefaultConfig(holderID)
	eng := engine.New(engCfg, registry, store, analystClient, evaluator, approvals, overrides,
		cfg.Guardrails, ceilings, counters)
	if err := eng.RestoreApprovalQueue(ctx); err != nil {
		log.Fatalf("Failed to restore approval queue: %v", err)
	}

	monitor := adapter.NewHealthMonitor(registry, time.Minute, 10*time.Second)
	monitor.Start(ctx)
	defer monitor.Stop()

	cadenceExpr := getEnv("TICK_CRON", "*/15 * * * *")
	scheduler := engine.NewScheduler(cadenceExpr, func() {
		tickCtx, cancel := context.WithTimeout(ctx, engCfg.Cadence)
		defer cancel()
		if err := eng.Tick(tickCtx); err != nil {
			slog.Error("tick failed", "error", err)
		}
	})
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	log.Println("Decision engine scheduled")

	router := gin.Default()
	registerRoutes(router, store, eng, monitor, stats)

	log.Printf("HTTP server listening on :%s", httpPort)
	log.Printf("Health check available at: http://localhost:%s/health", httpPort)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func hostnameOrFallback() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "adspilot-node"
}

// buildRegistry constructs one Adapter per enabled platform in cfg and
// the per-platform spend ceiling map the engine gates R3 (invariant I3)
// against. Only
// "mock" adapters are wired directly here; a real platform SDK adapter
// would register the same way under its own Kind.
func buildRegistry(cfg config.Config) (*adapter.Registry, map[domain.PlatformId]*currency.Amount, error) {
	registry := adapter.NewRegistry()
	ceilings := make(map[domain.PlatformId]*currency.Amount)

	for _, p := range cfg.Platforms {
		if !p.Enabled {
			continue
		}
		switch p.Kind {
		case "mock", "":
			registry.Register(mockadapter.New(p.PlatformId, nil))
		default:
			return nil, nil, fmt.Errorf("adapter kind %q is not wired: no platform SDK is available for it", p.Kind)
		}

		if p.SpendCeiling != "" {
			amt, ok := currency.FromDecimalString(p.SpendCeiling)
			if !ok {
				return nil, nil, fmt.Errorf("platform %s: invalid spend_ceiling %q", p.PlatformId, p.SpendCeiling)
			}
			ceilings[p.PlatformId] = &amt
		}
	}
	return registry, ceilings, nil
}

// buildAnalyst constructs the LLM analyst client from ANALYST_API_KEY.
// Without a key the engine still runs: every tick's analyse phase will
// report the platform degraded and proceed with zero proposals, rather
// than refusing to start.
func buildAnalyst(ctx context.Context) (analyst.Client, error) {
	apiKey := os.Getenv("ANALYST_API_KEY")
	if apiKey == "" {
		slog.Warn("ANALYST_API_KEY not set, analyst calls will fail open (degraded) every tick")
		return noopAnalyst{}, nil
	}
	return analyst.NewGenAIClient(ctx, apiKey, getEnv("ANALYST_MODEL", ""))
}

// noopAnalyst always errors, leaning on analyse.go's existing
// analyst-degraded warning path rather than special-casing a missing key
// anywhere else.
type noopAnalyst struct{}

func (noopAnalyst) Analyse(ctx context.Context, req analyst.Request) (analyst.Response, error) {
	return analyst.Response{}, fmt.Errorf("analyst: no client configured")
}

func registerRoutes(router *gin.Engine, store *ledger.Client, eng *engine.Engine, monitor *adapter.HealthMonitor, stats config.Stats) {
	router.GET("/health", func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		dbHealth, err := store.Health(reqCtx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": dbHealth,
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": dbHealth,
			"engine": gin.H{
				"state":    eng.State(),
				"warnings": eng.Warnings().Snapshot(),
			},
			"platforms": monitor.Snapshot(),
			"configuration": gin.H{
				"platforms":         stats.PlatformCount,
				"enabled_platforms": stats.EnabledPlatformCount,
				"overrides":         stats.OverrideCount,
				"automation_level":  stats.AutomationLevel,
			},
		})
	})

	router.GET("/approvals", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pending": eng.ListPendingApprovals()})
	})

	router.POST("/approvals/:id/approve", func(c *gin.Context) {
		p, err := eng.Approve(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"proposal": p})
	})

	router.POST("/approvals/:id/reject", func(c *gin.Context) {
		var body struct {
			Reason string `json:"reason"`
		}
		_ = c.ShouldBindJSON(&body)
		if err := eng.Reject(c.Request.Context(), c.Param("id"), body.Reason); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})

	router.GET("/actions", func(c *gin.Context) {
		since := time.Now().Add(-24 * time.Hour)
		actions, err := eng.GetRecentActions(c.Request.Context(), since)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"actions": actions})
	})
}
