// File: app/app.go
package app

import (
	"context"
	"go-vidtube-api/config"
	"go-vidtube-api/db"
	"go-vidtube-api/handler"
	"go-vidtube-api/logger"
	"go-vidtube-api/repository"
	"go-vidtube-api/router"
	"go-vidtube-api/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func Run() {
	config.LoadConfig(".")
	logger.Init()
	logger.Log.Info("Logger initialized")
	logger.Log.Info("Configuration loaded successfully")

	database, err := db.Connect()
	if err != nil {
		logger.Log.Fatalf("Error connecting to the database: %v", err)
	}
	defer database.Close()

	if err := db.RunMigrations("file://db/migrations"); err != nil {
		logger.Log.Fatalf("Error running database migrations: %v", err)
	}

	mediaStore, err := service.NewS3MediaStore(context.Background())
	if err != nil {
		logger.Log.Fatalf("Error initializing media store: %v", err)
	}

	// --- Wiring All Layers Together ---
	userRepo := repository.NewUserRepository(database)
	authService := service.NewAuthService()
	userService := service.NewUserService(userRepo, authService)
	userHandler := handler.NewUserHandler(userService, mediaStore)
	authMiddleware := handler.NewAuthMiddleware(userRepo, authService)

	r := router.NewRouter(userHandler, authMiddleware)

	// --- Start the Server with Graceful Shutdown ---
	port := config.AppConfig.Server.Port
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		logger.Log.Infof("Server starting on port :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Warn("Shutdown signal received. Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Log.Info("Server exited properly")
}
