package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vidtube/client/internal/httpserver"
	"github.com/vidtube/client/internal/middleware"
	"github.com/vidtube/client/internal/mockapi"
	"github.com/vidtube/client/internal/models"
)

const (
	demoUsername = "demo"
	demoPassword = "secret1"
)

func runMockServer(ctx context.Context, e *env, args []string) error {
	fs := newFlags("mock-server", e)
	host := fs.String("host", e.cfg.Mock.Host, "interface to listen on")
	port := fs.Int("port", e.cfg.Mock.Port, "port to listen on; 0 picks a free one")
	seed := fs.Bool("seed", false, "create a demo account with sample videos")
	if _, err := parseArgs(fs, args, 0, 0); err != nil {
		return err
	}

	var limiter middleware.RateLimiter
	if e.cfg.Mock.LoginLimit > 0 {
		limiter = middleware.NewKeyedLimiter(e.cfg.Mock.LoginLimit, e.cfg.Mock.LoginWindow, e.cfg.Mock.LoginLimit, 10*time.Minute)
	}

	api := mockapi.New(mockapi.Options{
		Logger:                e.logger,
		IssueTokensOnRegister: e.cfg.Mock.IssueTokensOnRegister,
		LoginLimiter:          limiter,
	})
	if *seed {
		if err := seedDemo(api); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	srv := httpserver.New(*host, *port, api.Handler())
	if err := srv.Listen(); err != nil {
		return err
	}

	e.logger.Info("starting mock api", "addr", srv.Addr())
	fmt.Fprintf(e.out, "Mock API listening on http://%s\n", srv.Addr())
	if *seed {
		fmt.Fprintf(e.out, "Demo account: %s / %s\n", demoUsername, demoPassword)
	}

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	select {
	case <-ctx.Done():
		e.logger.Info("context canceled, shutting down mock api")
	case sig := <-signalCh:
		e.logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-srvErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func seedDemo(api *mockapi.Server) error {
	demo, err := api.SeedUser(models.User{
		FullName: "Demo User",
		Username: demoUsername,
		Email:    "demo@example.com",
		Phone:    "5550100100",
	}, demoPassword)
	if err != nil {
		return err
	}

	samples := []models.VideoRecord{
		{Title: "Welcome to VideoTube", Description: "A short tour of the demo catalog.", Duration: "1:05"},
		{Title: "Mountain timelapse", Description: "Clouds rolling over the ridge at dawn.", Duration: "3:12"},
		{Title: "Cooking basics", Description: "Knife skills every home cook should know.", Duration: "7:48"},
	}
	for i, v := range samples {
		v.VideoFile = fmt.Sprintf("/media/videos/sample-%d.mp4", i+1)
		v.Thumbnail = fmt.Sprintf("/media/thumbnails/sample-%d.jpg", i+1)
		v.IsPublished = true
		if _, err := api.SeedVideo(demo.ID, v); err != nil {
			return err
		}
	}
	return nil
}
