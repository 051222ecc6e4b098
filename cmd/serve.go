package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docpipe/core/config"
	"docpipe/core/logger"
	"docpipe/core/middleware/rayid"
	"docpipe/core/store"
	"docpipe/feature/api"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd starts the read-only store query API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve configured stores over a read-only query API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		ctx := context.Background()
		stores := map[string]store.Store{}
		for name := range cfg.Stores {
			sc, err := cfg.Store(name)
			if err != nil {
				return err
			}
			st, err := store.FromConfig(sc)
			if err != nil {
				return fmt.Errorf("store %s: %w", name, err)
			}
			if err := st.Connect(ctx); err != nil {
				return err
			}
			defer st.Close(ctx)
			stores[name] = st
			logg.Info("store connected", zap.String("store", name))
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		})
		app.Use(rayid.New())
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			return c.Next()
		})

		handler := api.NewHandler(api.NewService(stores, logg))
		handler.RegisterRoutes(app)

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logg.Info("query API listening", zap.String("addr", addr))

		errCh := make(chan error, 1)
		go func() { errCh <- app.Listen(addr) }()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case sig := <-quit:
			logg.Info("shutting down", zap.String("signal", sig.String()))
			return app.Shutdown()
		}
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}
