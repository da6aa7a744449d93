package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whoami/config"
	"whoami/game"
	"whoami/handlers"
	"whoami/routes"
	"whoami/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "whoami",
	Short:         "Game server for the \"who am I?\" guessing game",
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var rolesCmd = &cobra.Command{
	Use:   "roles [file]",
	Short: "Check a roles file and print the roles it deals",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.Load().RolesFile
		if len(args) == 1 {
			path = args[0]
		}
		roles, err := services.ReadRoles(path)
		if err != nil {
			return err
		}
		if len(roles) == 0 {
			return fmt.Errorf("%s has no roles", path)
		}
		for _, r := range roles {
			fmt.Fprintln(cmd.OutOrStdout(), r)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d roles in %s\n", len(roles), path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rolesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}

	store := services.NewStore(db)
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)
	if redisClient != nil {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Redis unavailable at %s:%s, snapshots disabled: %v", cfg.RedisHost, cfg.RedisPort, err)
			redisClient = nil
		}
	}

	// Initialize game core and services
	controller := game.NewController(game.NewRegistry(), game.Options{BotTurnLimit: cfg.BotTurnLimit})
	roles := services.LoadRoles(cfg.RolesFile)
	log.Printf("Loaded %d roles", len(roles))

	hub := services.NewHub()
	gameService := services.NewGameService(controller, store, services.NewSnapshotStore(redisClient, cfg.SnapshotTTL), hub, roles)
	hub.SetHandler(gameService)
	go hub.Run()
	go gameService.RunSweeper(ctx, cfg.SweepEvery, cfg.VoteTimeout)

	gameHandler := handlers.NewGameHandler(gameService)

	// Setup Gin router
	router := gin.Default()
	routes.SetupRoutes(router, gameHandler, hub, gameService)

	srv := &http.Server{Addr: cfg.Addr(), Handler: router}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Addr())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
