package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"khcc-bibliometrics/config"
	"khcc-bibliometrics/models"
	"khcc-bibliometrics/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	refreshCounter        prometheus.Counter
	refreshFailureCounter prometheus.Counter
	publicationsProcessed prometheus.Gauge
	refreshDuration       prometheus.Gauge
)

func init() {
	refreshCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bibliometrics_refreshes_total",
			Help: "Total number of completed derived-table refreshes.",
		},
	)
	refreshFailureCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bibliometrics_refresh_failures_total",
			Help: "Total number of failed derived-table refreshes.",
		},
	)
	publicationsProcessed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bibliometrics_publications_processed",
			Help: "Number of source publications processed by the last refresh.",
		},
	)
	refreshDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bibliometrics_refresh_duration_seconds",
			Help: "Duration of the last derived-table refresh in seconds.",
		},
	)
	prometheus.MustRegister(refreshCounter, refreshFailureCounter, publicationsProcessed, refreshDuration)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to bibliometrics database.")

	// Auto-Migration nur für die abgeleiteten Tabellen; die Quelltabelle
	// papers gehört der Ingest-Pipeline und wird hier nie verändert.
	logging.Info("Running database auto-migration for derived tables...")
	db.AutoMigrate(
		&models.PaperSummary{},
		&models.KHCCAuthor{},
		&models.JournalMetric{},
		&models.CollaboratingInstitution{},
		&models.ResearchTopic{},
		&models.AuthorProductivity{},
		&models.AuthorCollaboration{},
	)

	refreshService := services.NewRefreshService(cfg, db, logging)
	if err := refreshService.CheckSourceSchema(); err != nil {
		logging.Fatal("Source table contract check failed", zap.Error(err))
	}

	runRefresh := func(trigger string) {
		result, err := refreshService.Run(context.Background())
		if err != nil {
			refreshFailureCounter.Inc()
			logging.Error("Refresh failed", zap.String("trigger", trigger), zap.Error(err))
			return
		}
		refreshCounter.Inc()
		publicationsProcessed.Set(float64(result.Publications))
		refreshDuration.Set(result.Duration.Seconds())
		logging.Info("Refresh completed",
			zap.String("trigger", trigger),
			zap.Int("publications", result.Publications),
			zap.Int("khcc_authors", result.KHCCAuthors),
			zap.Int("journals", result.JournalMetrics),
			zap.Int("institutions", result.Institutions),
			zap.Int("topics", result.Topics),
			zap.Int("authors", result.Authors),
			zap.Int("collaborations", result.Collaborations),
			zap.Duration("duration", result.Duration),
		)
	}

	logging.Info("Running initial refresh...")
	runRefresh("startup")

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupRelationRoutes(router, db, logging)
	setupRefreshRoutes(router, runRefresh)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled refresh job...")
		runRefresh("cron")
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// setupRelationRoutes konfiguriert die Read-Only-Endpunkte für die abgeleiteten Relationen
func setupRelationRoutes(router *gin.Engine, db *gorm.DB, log *zap.Logger) {
	rg := router.Group("/relations")

	rg.GET("/papers-summary", func(c *gin.Context) {
		var rows []models.PaperSummary
		if err := db.Order("paper_id").Find(&rows).Error; err != nil {
			log.Error("Database query for papers_summary failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/khcc-authors", func(c *gin.Context) {
		query := db.Model(&models.KHCCAuthor{})
		if name := c.Query("author_name"); name != "" {
			query = query.Where("author_name = ?", name)
		}
		if paperID := c.Query("paper_id"); paperID != "" {
			query = query.Where("paper_id = ?", paperID)
		}
		var rows []models.KHCCAuthor
		if err := query.Order("id").Find(&rows).Error; err != nil {
			log.Error("Database query for khcc_authors failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/journal-metrics", func(c *gin.Context) {
		var rows []models.JournalMetric
		if err := db.Order("journal").Find(&rows).Error; err != nil {
			log.Error("Database query for journal_metrics failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/collaborating-institutions", func(c *gin.Context) {
		var rows []models.CollaboratingInstitution
		if err := db.Order("collaboration_count desc").Find(&rows).Error; err != nil {
			log.Error("Database query for collaborating_institutions failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/research-topics", func(c *gin.Context) {
		var rows []models.ResearchTopic
		if err := db.Order("papers_count desc").Find(&rows).Error; err != nil {
			log.Error("Database query for research_topics failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/author-productivity", func(c *gin.Context) {
		var rows []models.AuthorProductivity
		if err := db.Order("total_papers desc").Find(&rows).Error; err != nil {
			log.Error("Database query for author_productivity failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/author-collaborations", func(c *gin.Context) {
		query := db.Model(&models.AuthorCollaboration{})
		if author := c.Query("author"); author != "" {
			query = query.Where("author1 = ? OR author2 = ?", author, author)
		}
		var rows []models.AuthorCollaboration
		if err := query.Order("collaboration_count desc").Find(&rows).Error; err != nil {
			log.Error("Database query for author_collaborations failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, rows)
	})
}

func setupRefreshRoutes(router *gin.Engine, runRefresh func(trigger string)) {
	rg := router.Group("/refresh")
	rg.POST("/", func(c *gin.Context) {
		go runRefresh("api")
		c.JSON(http.StatusAccepted, gin.H{"message": "Refresh of derived tables triggered."})
	})
}
