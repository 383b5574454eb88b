// Package admin holds the supporthubd commands: the API server and schema
// migrations.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/supporthub/internal/api/handlers"
	"github.com/cloo-solutions/supporthub/internal/config"
	"github.com/cloo-solutions/supporthub/internal/database"
	"github.com/cloo-solutions/supporthub/internal/indexing"
	"github.com/cloo-solutions/supporthub/internal/jobs"
	"github.com/cloo-solutions/supporthub/internal/logger"
	"github.com/cloo-solutions/supporthub/internal/openai"
	"github.com/cloo-solutions/supporthub/internal/repository"
	"github.com/cloo-solutions/supporthub/internal/server"
	"github.com/cloo-solutions/supporthub/internal/service"
	"github.com/cloo-solutions/supporthub/internal/storage"
	"github.com/cloo-solutions/supporthub/internal/telemetry"
	"github.com/cloo-solutions/supporthub/internal/ticketno"
)

const (
	shutdownTimeout = 30 * time.Second
	// Background indexing tasks get the HTTP timeout plus room to write the
	// failure log row.
	indexTaskSlack = 5 * time.Second
)

// version is set at build time with -ldflags.
var version = "dev"

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the supporthub API server, the embedding worker and the background indexing dispatcher",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides SUPPORTHUB_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	log, err := logger.New(cfg.LogMode, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	flush, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          version,
		TracesSampleRate: cfg.TracesSampleRate(),
		Debug:            cfg.Debug,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info("connected to database")

	if noMigrate, _ := cmd.Flags().GetBool("no-migrate"); !noMigrate {
		st, err := database.MigrateUp(cfg.DatabaseURL, cfg.MigrationsDir)
		if err != nil {
			return err
		}
		log.Info("migrations complete", "version", st.Version, "applied", st.Applied)
	}

	txRunner := repository.NewTxRunner(pool)
	if cfg.HasRedis() {
		seq, err := ticketno.Connect(ctx, ticketno.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			return err
		}
		defer seq.Close()
		txRunner = txRunner.WithTicketNumbers(seq)
	}

	articleRepo := repository.NewArticleRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	assetRepo := repository.NewAssetRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	ticketLogRepo := repository.NewTicketLogRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)

	var assetStore service.StorageClientInterface
	if cfg.HasS3() {
		store, err := storage.NewAssetStore(ctx, storage.Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
		})
		if err != nil {
			return err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return err
		}
		log.Info("asset bucket ready", "bucket", store.Bucket())
		assetStore = store
	} else {
		log.Warn("object storage not configured, assets keep caller supplied URLs")
	}

	var worker *jobs.Worker
	if cfg.HasOpenAI() {
		embedder := service.NewEmbeddingService(openai.NewClient(openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			EmbeddingModel: cfg.EmbeddingModel,
		}), chunkRepo, log)
		worker = jobs.NewWorker(jobs.NewEmbeddingWorker(embeddingJobRepo, embedder, log), cfg.EmbeddingPollInterval, log)
		go worker.Start(ctx)
	} else {
		log.Warn(config.EnvVar("OPENAI_API_KEY") + " not set, chunks will not be embedded")
	}

	indexer := indexing.NewClient(cfg.IndexBaseURL, cfg.IndexTimeout)
	if !cfg.HasIndexing() {
		log.Warn(config.EnvVar("INDEX_BASE_URL") + " not set, conversions will record indexing as skipped")
	}
	dispatcher := indexing.NewDispatcher(indexer.Timeout()+indexTaskSlack, log)

	articleSvc := service.NewArticleService(articleRepo, chunkRepo, assetRepo, txRunner, log)
	assetSvc := service.NewAssetService(assetRepo, articleRepo, assetStore, log)
	ticketSvc := service.NewTicketService(ticketRepo, ticketLogRepo, txRunner, log)
	conversionSvc := service.NewConversionService(txRunner, ticketLogRepo, indexer, dispatcher, log)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.NewRouter(server.RouterConfig{
			Logger:         log,
			Database:       pool,
			ArticleHandler: handlers.NewArticleHandler(articleSvc),
			AssetHandler:   handlers.NewAssetHandler(assetSvc),
			TicketHandler:  handlers.NewTicketHandler(ticketSvc, conversionSvc),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.Port, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if worker != nil {
		worker.Stop()
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn("background indexing tasks cancelled", "error", err)
	}

	log.Info("server exited")
	return nil
}
