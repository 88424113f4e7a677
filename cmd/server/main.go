package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"matricula/internal/admission/allocator"
	admissionhandler "matricula/internal/admission/handler"
	"matricula/internal/admission/lifecycle"
	admissionmetrics "matricula/internal/admission/metrics"
	"matricula/internal/admission/registry"
	applicantstore "matricula/internal/admission/store/applicant"
	requirementstore "matricula/internal/admission/store/requirement"
	slotstore "matricula/internal/admission/store/slot"
	"matricula/internal/audit"
	"matricula/internal/blobstore"
	httpapi "matricula/internal/http"
	"matricula/internal/mailer"
	"matricula/internal/platform/config"
	"matricula/internal/platform/httpserver"
	"matricula/internal/platform/logger"
	"matricula/internal/platform/postgres"
	"matricula/internal/platform/redis"
	"matricula/internal/roster"
)

// main wires dependencies and supervises the server plus the audit worker.
// Business logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	log := logger.New(cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		log.Error("DATABASE_URL is required")
		return errors.New("missing DATABASE_URL")
	}
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		return err
	}
	defer db.Close()
	if cfg.MigrateOnStart {
		if err := postgres.MigrateUp(db); err != nil {
			log.Error("migrations failed", "error", err)
			return err
		}
	}

	redisClient, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		return err
	}
	var broadcaster audit.Broadcaster = audit.NopBroadcaster{}
	if redisClient != nil {
		defer redisClient.Close()
		broadcaster = audit.NewRedisBroadcaster(redisClient.Client)
	}

	blobs, err := blobstore.NewFilesystem(cfg.BlobDir)
	if err != nil {
		log.Error("blob store init failed", "blob_dir", cfg.BlobDir, "error", err)
		return err
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := admissionmetrics.New(promRegistry)

	var mail mailer.Mailer
	if cfg.SendgridAPIKey != "" {
		mail = mailer.NewSendgrid(cfg.SendgridAPIKey, cfg.MailFromName, cfg.MailFrom)
	} else {
		mail = mailer.NewConsole(log)
	}

	applicants := applicantstore.NewPostgres(db)
	requirements := requirementstore.NewPostgres(db)
	slots := slotstore.NewPostgres(db)
	persons := roster.NewPostgres(db)
	events := audit.NewPostgresStore(db)

	publisher := audit.NewPublisher(events,
		audit.WithLogger(log),
		audit.WithDropHook(metrics.RecordAuditDrop),
	)
	worker := audit.NewWorker(publisher.Inbox(), broadcaster, log)

	alloc, err := allocator.New(applicants,
		allocator.WithLogger(log),
		allocator.WithMetrics(metrics),
	)
	if err != nil {
		log.Error("allocator init failed", "error", err)
		return err
	}
	reg, err := registry.New(slots, requirements, blobs, registry.WithLogger(log))
	if err != nil {
		log.Error("registry init failed", "error", err)
		return err
	}
	lc, err := lifecycle.New(applicants, slots, reg, alloc, persons, blobs, publisher,
		lifecycle.WithLogger(log),
		lifecycle.WithMetrics(metrics),
		lifecycle.WithMailer(mail),
	)
	if err != nil {
		log.Error("lifecycle init failed", "error", err)
		return err
	}

	h := admissionhandler.New(lc, reg, publisher, alloc, log)
	router := httpapi.NewRouter(h, promRegistry, log)
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server starting", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}
