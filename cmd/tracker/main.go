package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	_ "github.com/lib/pq"

	"github.com/ignite/phish-tracker/internal/config"
	"github.com/ignite/phish-tracker/internal/pages"
	"github.com/ignite/phish-tracker/internal/pkg/logger"
	"github.com/ignite/phish-tracker/internal/repository/postgres"
	"github.com/ignite/phish-tracker/internal/service/events"
	"github.com/ignite/phish-tracker/internal/tracking"
)

func main() {
	cfgPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*cfgPath)
	if err != nil {
		fatal("load config", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(cfg.Logging.Redact())

	if cfg.Database.URL == "" {
		fatal("DATABASE_URL is required", nil)
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		fatal("open database", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		// Not fatal: /ready reports the outage and the pool reconnects.
		logger.Warn("database not reachable at startup", "error", err)
	}

	var awsCfg *aws.Config
	if cfg.Tracking.SQSQueueURL != "" || cfg.Pages.S3Bucket != "" {
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWS.Region)}
		if cfg.AWS.Profile != "" {
			opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.AWS.Profile))
		}
		loaded, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
		if err != nil {
			fatal("aws config", err)
		}
		awsCfg = &loaded
	}

	svcOpts := []events.Option{events.WithStrictValidation(cfg.Tracking.StrictValidation)}
	var pub *tracking.Publisher
	if cfg.Tracking.SQSQueueURL != "" {
		pub = tracking.NewPublisher(sqs.NewFromConfig(*awsCfg), cfg.Tracking.SQSQueueURL)
		svcOpts = append(svcOpts, events.WithNotifier(pub))
		logger.Info("publishing events to SQS", "queue_url", cfg.Tracking.SQSQueueURL)
	}

	var sources pages.Chain
	if cfg.Pages.S3Bucket != "" {
		sources = append(sources, pages.S3Source{
			Client: s3.NewFromConfig(*awsCfg),
			Bucket: cfg.Pages.S3Bucket,
			Prefix: cfg.Pages.S3Prefix,
		})
	}
	if cfg.Pages.Dir != "" {
		sources = append(sources, pages.DirSource{Dir: cfg.Pages.Dir})
	}
	sources = append(sources, pages.EmbeddedSource{})

	proxies, err := cfg.Server.TrustedProxyPrefixes()
	if err != nil {
		fatal("trusted proxies", err)
	}

	svc := events.NewService(postgres.NewEventRepo(db), svcOpts...)
	handler := tracking.NewHandler(svc, pages.NewRenderer(sources), db, cfg.CORS.AllowedOrigins,
		tracking.WithTrustedProxies(proxies))

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		IdleTimeout:  cfg.Server.IdleTimeout(),
	}

	go func() {
		logger.Info("tracker listening", "addr", srv.Addr, "strict_validation", cfg.Tracking.StrictValidation)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("listen", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down tracker")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if pub != nil {
		if err := pub.Wait(ctx); err != nil {
			logger.Warn("sqs publishes still in flight at exit", "error", err)
		}
	}
}

func fatal(msg string, err error) {
	if err != nil {
		logger.Error(msg, "error", err)
	} else {
		logger.Error(msg)
	}
	os.Exit(1)
}
