package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/OriflamCodeGamming/MoodCrowd/internal/database"
	"github.com/OriflamCodeGamming/MoodCrowd/internal/handlers"
	"github.com/OriflamCodeGamming/MoodCrowd/internal/middleware"
	"github.com/OriflamCodeGamming/MoodCrowd/internal/monitoring"
	"github.com/OriflamCodeGamming/MoodCrowd/internal/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func main() {
	if err := utils.EnsureJWTReady(); err != nil {
		log.Fatal("JWT configuration error:", err)
	}

	database.InitDB()
	defer database.CloseDB()
	database.CreateTables()

	handlers.SetMonitoringService(monitoring.NewService(time.Now()))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(monitoring.RequestMetricsMiddleware())

	router.GET("/health", handlers.HealthCheck)
	router.GET("/api/status", handlers.Status)

	router.POST("/auth/register", handlers.Register)
	router.POST("/auth/login", handlers.Login)

	router.POST("/analyze", middleware.RateLimitMiddleware(rate.Limit(0.2), 2), handlers.AnalyzeBatch)

	playlists := router.Group("/playlists", middleware.SessionMiddleware())
	playlists.POST("/save", handlers.SavePlaylist)
	playlists.GET("/list", handlers.ListPlaylists)

	monitor := router.Group("/api/monitor")
	monitor.GET("/status", handlers.MonitorStatus)
	monitor.GET("/runtime", handlers.MonitorRuntime)
	monitor.GET("/snapshot", handlers.MonitorSnapshot)

	addr := ":" + resolvePort()
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Printf("MoodCrowd API starting on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

func resolvePort() string {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		return "8080"
	}
	return port
}
