package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"mabletask/tracker/database"
	"mabletask/tracker/handlers"
	"mabletask/tracker/middleware"
	"mabletask/tracker/store"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Initialize PostgreSQL Database (projects + sessions) ---
	dbClient, err := database.NewPostgresDB()
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL database: %v", err)
	}
	defer dbClient.Close()

	// --- Initialize ClickHouse Database (tracked events) ---
	chClient, err := database.NewClickHouseDB()
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse database: %v", err)
	}
	defer chClient.Close()

	// --- Initialize Stores ---
	projectStore := store.NewProjectStore(dbClient.DB)
	sessionStore := store.NewSessionStore(dbClient.DB)
	eventStore := store.NewEventStore(chClient)

	// --- Initialize Handlers ---
	trackHandlers := handlers.NewTrackHandlers(sessionStore, eventStore, projectStore)
	adminHandlers := handlers.NewAdminHandlers(projectStore, sessionStore)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	track := r.Group("/track")
	{
		// The beacon path authenticates from its payload, not headers.
		track.POST("/beacon", trackHandlers.Beacon)

		authed := track.Group("")
		authed.Use(middleware.ProjectAuth(projectStore))
		{
			authed.POST("/init", trackHandlers.InitSession)

			withSession := authed.Group("")
			withSession.Use(middleware.SessionAuth())
			{
				withSession.POST("/events", trackHandlers.TrackEvents)
				withSession.POST("/submit", trackHandlers.SubmitSession)
			}
		}
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AdminAuth())
	{
		admin.POST("/projects", adminHandlers.CreateProject)
		admin.GET("/sessions/:id", adminHandlers.GetSession)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("Tracker ingestion server starting on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Tracker ingestion server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
