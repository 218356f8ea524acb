// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/wellpath/medtrack/config"
	"github.com/wellpath/medtrack/endpoint"
	"github.com/wellpath/medtrack/engine"
	"github.com/wellpath/medtrack/middleware"
	"github.com/wellpath/medtrack/model"
	"github.com/wellpath/medtrack/util"
)

func main() {
	// Load the configuration
	cfg := config.LoadConfig()

	db, err := config.ConnectMySQL()
	if err != nil {
		log.Fatalf("Error connecting to MySQL: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Program{},
		&model.Patient{},
		&model.Medication{},
		&model.PatientEnrollment{},
		&model.Attendance{},
		&model.Dispensation{},
		&model.EventLog{},
	); err != nil {
		log.Fatalf("Error migrating schema: %v", err)
	}

	util.SetEventLoggerDB(db)
	util.SetJWTSecret(os.Getenv("JWTSECRET"))

	if _, err := config.ConnectRedis(); err != nil {
		// Redis backs caching and rate limiting only; run without it.
		log.Printf("Redis unavailable: %v", err)
	}

	// Progress engine and its recompute scheduler.
	dedupFreqs := make([]engine.Frequency, 0, len(cfg.DedupFrequencies))
	for _, s := range cfg.DedupFrequencies {
		f, err := engine.ParseFrequency(s)
		if err != nil {
			log.Fatalf("Invalid DEDUP_FREQUENCIES entry %q: %v", s, err)
		}
		dedupFreqs = append(dedupFreqs, f)
	}
	eng := engine.New(db, engine.Options{
		Location:         cfg.ReportingLocation(),
		DedupFrequencies: dedupFreqs,
	})
	sched := engine.NewScheduler(eng.RecomputeEnrollment, eng.ListActiveEnrollmentIDs, engine.SchedulerOptions{
		Workers:          cfg.RecomputeWorkers,
		SweepInterval:    cfg.SweepInterval,
		RecomputeTimeout: cfg.RecomputeTimeout,
	})
	sched.Start()
	defer sched.Stop()

	// One-shot migration pass linking legacy attendance rows to enrollments.
	if os.Getenv("BACKFILL_ATTENDANCE") == "true" {
		res, err := eng.BackfillAttendanceLinks(context.Background())
		if err != nil {
			log.Fatalf("Attendance backfill failed: %v", err)
		}
		log.Printf("Attendance backfill: linked=%d ambiguous=%d unmatched=%d", res.Linked, res.Ambiguous, res.Unmatched)
	}

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(middleware.EngineMiddleware(eng, sched))
	router.Use(middleware.EndpointCallLogger())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})

	auth := middleware.ServiceAuth()

	router.POST("/enrollment", auth, endpoint.CreateEnrollment)
	router.POST("/enrollment/:id/recompute-horizon", auth, endpoint.RecomputeEnrollmentHorizon)
	router.GET("/enrollment/:id/progress", endpoint.GetEnrollmentProgress)

	router.POST("/attendance", auth, endpoint.MarkAttendance)
	router.PATCH("/attendance/:id", auth, endpoint.UpdateAttendance)
	router.DELETE("/attendance/:id", auth, endpoint.DeleteAttendance)

	router.POST("/dispensation", auth, middleware.RateLimiter(middleware.RateLimitConfig{}), endpoint.RecordDispensation)
	router.GET("/dispensation/upcoming", endpoint.ListUpcomingDispensations)

	router.GET("/dashboard/program-duration", endpoint.ProgramDurationSummary)

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
