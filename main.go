package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akirol/trainwatch/internal/api"
	"github.com/akirol/trainwatch/internal/auth"
	"github.com/akirol/trainwatch/internal/core"
	"github.com/akirol/trainwatch/internal/jobs"
	"github.com/akirol/trainwatch/internal/presets"
	"github.com/akirol/trainwatch/internal/store"
	"github.com/akirol/trainwatch/internal/trainer"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize the core application components
	app, err := core.New()
	if err != nil {
		log.Fatalf("Fatal error during application setup: %v", err)
	}
	defer app.Close()

	// --- First User Provisioning ---
	st := store.New(app.DB)
	userCount, err := st.CountUsers()
	if err != nil {
		log.Fatalf("Could not check user count: %v", err)
	}
	if userCount == 0 {
		log.Println("No users found. Creating default admin account.")
		password := generateRandomPassword(12)
		passwordHash, _ := auth.HashPassword(password)
		_, err := st.CreateUser("admin", passwordHash, "admin")
		if err != nil {
			log.Fatalf("Could not create default admin user: %v", err)
		}
		log.Println("==================================================")
		log.Println("Default admin user created.")
		log.Printf("Username: admin")
		log.Printf("Password: %s", password)
		log.Println("Please change this password immediately.")
		log.Println("==================================================")
	}

	// Verify the trainer engine speaks a supported API version. An engine
	// that is down right now is not fatal; polls will pick it up.
	versionCtx, cancelVersion := context.WithTimeout(context.Background(), 5*time.Second)
	if err := app.Trainer.CheckCompatibility(versionCtx, app.Config.Trainer.MinEngineAPIVersion); err != nil {
		log.Printf("Warning: engine compatibility check failed: %v", err)
	}
	cancelVersion()

	// Start the background pollers
	jobManager := jobs.NewManager()
	jobs.RegisterAll(jobManager)
	jobs.Start(app, jobManager)

	// Connect to the engine's push channel. A reconnect triggers an
	// immediate poll so the snapshot is re-derived from fresh state.
	socketCtx, cancelSocket := context.WithCancel(context.Background())
	socket := trainer.NewSocket(app.Config.Trainer.WebSocketURL, app.Monitor, app.WsHub)
	socket.SetReconnectHook(func() {
		if err := jobManager.Run(jobs.JobStatusPoll, app); err != nil {
			log.Printf("Post-reconnect status poll could not start: %v", err)
		}
	})
	go socket.Run(socketCtx)

	// Watch the config preset directory
	presetService := presets.NewService(app.Config.Presets.Path, app.WsHub)
	if err := presetService.Start(); err != nil {
		log.Printf("Warning: preset watcher could not start: %v", err)
	}

	// Setup the API server
	server := api.NewServer(app)
	server.SetJobManager(jobManager)
	server.SetPresetService(presetService)

	addr := fmt.Sprintf(":%d", app.Config.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
	}
	// --- Graceful Shutdown ---
	// Start the server in a goroutine so it doesn't block.
	go func() {
		log.Printf("Starting web server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	// Wait for an interrupt signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancelSocket()
	presetService.Stop()

	// Create a context with a timeout to allow existing connections to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Attempt a graceful shutdown.
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}

func generateRandomPassword(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[seededRand.Intn(len(charset))]
	}
	return string(b)
}
