package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	cronrunner "github.com/MattewMattew/ManagmentBoard/internal/cron"
	"github.com/MattewMattew/ManagmentBoard/internal/handler"
	"github.com/MattewMattew/ManagmentBoard/internal/service"

	_ "github.com/MattewMattew/ManagmentBoard/docs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled issue sync",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.openStore(ctx); err != nil {
		return err
	}
	if err := a.migrate(); err != nil {
		return err
	}
	if err := a.wire(); err != nil {
		return err
	}

	if strings.EqualFold(a.cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(handler.CORS())
	engine.Use(handler.RequireBearer(a.cfg.Server.AuthToken))
	engine.Use(handler.WriteAudit(a.logger))

	healthHandler := &handler.HealthHandler{DB: a.db, ProbeTimeout: a.cfg.DB.ProbeTimeout}
	healthHandler.Register(engine)
	handler.RegisterDocs(engine)
	issueHandler := &handler.IssueHandler{Query: a.query, Sync: a.sync, Logger: a.logger}
	issueHandler.Register(engine)
	apiKeyHandler := &handler.APIKeyHandler{Service: a.apiKeys, Logger: a.logger}
	apiKeyHandler.Register(engine)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    a.cfg.Server.HTTPAddr,
		Handler: engine,
	}

	cronRunner := cronrunner.New(a.logger, ctx)
	if a.cfg.Cron.Enabled {
		_, err := cronRunner.Add("issue_sync", a.cfg.Cron.IssueSync, func(ctx context.Context) error {
			_, err := a.sync.Run(ctx, service.TriggerCron)
			if errors.Is(err, service.ErrSyncInProgress) {
				return nil
			}
			return err
		})
		if err != nil {
			a.logger.Warn("cron register issue sync failed", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case err := <-errCh:
		a.logger.Error("server error", zap.Error(err))
	}

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
