package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prepai-go/internal/config"
	"prepai-go/internal/database"
	"prepai-go/internal/gateway"
	logger "prepai-go/internal/logging"
	"prepai-go/internal/repository"
	"prepai-go/internal/router"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(projectRoot *string) *cobra.Command {
	var port string

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the transcription, evaluation and history server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, *projectRoot, port)
		},
	}
	c.Flags().StringVar(&port, "port", "", "listen port (overrides server.port)")
	return c
}

func runServer(ctx context.Context, projectRoot, port string) error {
	conf, err := config.Load(projectRoot)
	if err != nil {
		return err
	}

	// Initialize Logger
	log, err := logger.Init(projectRoot, conf.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := config.Init(projectRoot, log); err != nil {
		log.Error("Failed to initialize configuration", zap.Error(err))
		return err
	}
	conf = config.Get()
	if port != "" {
		conf.Server.Port = port
	}

	if conf.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Database
	db, err := database.Open(projectRoot, conf.Database, log)
	if err != nil {
		log.Error("Failed to open database", zap.Error(err))
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	svc := gateway.NewServiceFromConfig(conf.Provider, log)
	if !svc.Ready() {
		log.Warn("No provider credential configured; /transcribe and /evaluate will answer 500",
			zap.String("variable", gateway.CredentialName))
	}

	r := router.Setup(log, router.Deps{
		Server:    conf.Server,
		Gateway:   svc,
		Interview: repository.NewInterviewRepository(db),
	})

	srv := &http.Server{
		Addr:              ":" + conf.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening on http://localhost:" + conf.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to run server", zap.Error(err))
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
