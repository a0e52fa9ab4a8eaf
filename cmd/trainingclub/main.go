package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"trainingclub/internal/amqp"
	"trainingclub/internal/cli"
	"trainingclub/internal/core"
	apphttp "trainingclub/internal/http"
	clublog "trainingclub/internal/log"
	"trainingclub/internal/metrics"
	"trainingclub/internal/middleware/ratelimit"
	"trainingclub/internal/middleware/security"
	"trainingclub/internal/services"
)

func main() {
	cli.LoadEnvFile()

	if len(os.Args) > 1 && os.Args[1] == "token" {
		os.Exit(issueToken(os.Args[2:]))
	}

	logger := cli.SetupLogger(slog.LevelInfo, clublog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.SlogLevel(), clublog.ComponentApp)
	loc := cli.ClubLocation(logger, cfg)

	ctx, stop := cli.SignalContext(clublog.NewContext(context.Background(), logger))
	defer stop()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath, loc)
	m := metrics.New()

	deps := services.Deps{Store: repo, Metrics: m}
	if cfg.AMQPURL != "" {
		client, err := amqp.ConnectWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 5)
		if err != nil {
			// check-ins must keep working while the broker is down
			logger.Warn("AMQP unavailable, events will not be published", "error", err)
		} else {
			deps.Publisher = client
			logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP_URL not set, running without event publishing")
	}

	svc := services.New(deps)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close services", "error", err)
		}
	}()

	if !cfg.AuthEnabled() {
		logger.Warn("JWT_SECRET not set, every request runs as Admin")
	}

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.CheckInRateLimit})
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Services:       svc,
		Location:       loc,
		Auth:           apphttp.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer),
		Metrics:        m,
		CheckInLimiter: limiter,
		Detector:       security.NewDetector(),
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting trainingclub server", "port", cfg.Port, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return limiter.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// issueToken prints a bearer token for local use:
//
//	trainingclub token -sub <member id> -role Trainer -ttl 720h
func issueToken(args []string) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	sub := fs.String("sub", "", "member id the token is issued to")
	role := fs.String("role", string(core.RoleMember), "Admin, Trainer or Member")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	r, err := core.ParseRole(*role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	secret, issuer := os.Getenv("JWT_SECRET"), os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "trainingclub"
	}
	token, err := apphttp.NewAuthenticator(secret, issuer).IssueToken(*sub, r, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(token)
	return 0
}
