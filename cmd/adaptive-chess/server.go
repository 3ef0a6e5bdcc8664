package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/park285/adaptive-chess-bot/internal/chessbuilder"
	"github.com/park285/adaptive-chess-bot/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

func runServer(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	addr := fs.String("addr", env.cfg.HTTPAddr, "listen address")
	debug := fs.Bool("debug", false, "gin debug mode")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*debug {
		gin.SetMode(gin.ReleaseMode)
	}

	deps, err := chessbuilder.New(env.cfg, env.logger, chessbuilder.Options{})
	if err != nil {
		return err
	}
	defer deps.Close()

	router := httpapi.NewRouter(deps.Service, httpapi.Options{
		CORSOrigins:    env.cfg.CORSOrigins,
		WSPingInterval: 30 * time.Second,
	}, env.logger.Named("http"))
	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		env.logger.Info("http server listening", zap.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		env.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
