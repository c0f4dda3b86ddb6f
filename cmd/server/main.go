package main

import (
	"alcyxob/tt-trainer/internal/api"
	"alcyxob/tt-trainer/internal/config"
	"alcyxob/tt-trainer/internal/repository"
	"alcyxob/tt-trainer/internal/repository/mongo"
	"alcyxob/tt-trainer/internal/repository/sqlite"
	"alcyxob/tt-trainer/internal/service"
	"alcyxob/tt-trainer/internal/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var configPath string

// @title Table Tennis Trainer API
// @version 1.0
// @description API for building table tennis training sessions and running them.
// @host localhost:8080
// @BasePath /api/v1
func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "tt-trainer",
		Short:        "Table tennis training session server",
		SilenceUsage: true,
		RunE:         runServeCmd,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory holding config.yaml")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE:  runServeCmd,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "ensure-indexes",
		Short: "Create the MongoDB indexes and exit",
		RunE:  runEnsureIndexesCmd,
	})
	return rootCmd
}

// repositories bundles the store backing the services.
type repositories struct {
	exercises repository.ExerciseRepository
	sessions  repository.SessionRepository
	history   repository.HistoryRepository
	close     func()
}

func openRepositories(cfg config.DatabaseConfig) (*repositories, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("could not open SQLite database %s: %w", cfg.SQLitePath, err)
		}
		log.Printf("INFO: SQLite database opened at %s", cfg.SQLitePath)
		return &repositories{
			exercises: sqlite.NewExerciseRepository(db),
			sessions:  sqlite.NewSessionRepository(db),
			history:   sqlite.NewHistoryRepository(db),
			close: func() {
				if err := db.Close(); err != nil {
					log.Printf("ERROR: Failed to close SQLite database: %v", err)
				}
			},
		}, nil
	default:
		client, err := mongo.ConnectDB(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
		}
		appDB := client.Database(cfg.Name)
		log.Println("INFO: Database connection established.")

		go func() {
			idxCtx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
			defer cancel()
			mongo.EnsureIndexes(idxCtx, appDB)
		}()

		return &repositories{
			exercises: mongo.NewMongoExerciseRepository(appDB),
			sessions:  mongo.NewMongoSessionRepository(appDB),
			history:   mongo.NewMongoHistoryRepository(appDB),
			close: func() {
				log.Println("Disconnecting MongoDB...")
				if err := mongo.DisconnectDB(client); err != nil {
					log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
				}
			},
		}, nil
	}
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	log.Println("Starting Table Tennis Trainer Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	log.Printf("Configuration loaded (database driver: %s).", cfg.Database.Driver)

	// --- Repositories ---
	repos, err := openRepositories(cfg.Database)
	if err != nil {
		return err
	}
	defer repos.close()

	// --- Report Archive ---
	archive, err := storage.NewS3Archive(cmd.Context(), cfg.S3)
	switch {
	case errors.Is(err, storage.ErrArchiveDisabled):
		log.Println("INFO: No S3 bucket configured, report export is disabled.")
		archive = nil
	case err != nil:
		return fmt.Errorf("could not initialize S3 report archive: %w", err)
	}

	// --- Services ---
	builder := service.NewSessionBuilder(repos.exercises, cfg.Sessions.AllowEmpty, time.Now)
	exerciseService := service.NewExerciseService(repos.exercises, repos.sessions, repos.history)
	sessionService := service.NewSessionService(repos.sessions, builder, time.Now)
	trainingService := service.NewTrainingService(
		sessionService, repos.exercises, repos.sessions, repos.history,
		archive, cfg.Reports.URLExpiry, time.Now,
	)

	// --- HTTP ---
	router := gin.Default() // Includes Logger and Recovery middleware
	api.SetupRoutes(router, exerciseService, sessionService, trainingService)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen and serve: %w", err)
		}
	case <-quit:
	}
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exiting.")
	return nil
}

func runEnsureIndexesCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if cfg.Database.Driver != config.DriverMongo {
		return fmt.Errorf("ensure-indexes needs the %q driver, configured driver is %q", config.DriverMongo, cfg.Database.Driver)
	}

	client, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		return fmt.Errorf("could not connect to MongoDB: %w", err)
	}
	defer func() {
		if err := mongo.DisconnectDB(client); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(cmd.Context(), 1*time.Minute)
	defer cancel()
	mongo.EnsureIndexes(ctx, client.Database(cfg.Database.Name))
	return nil
}
