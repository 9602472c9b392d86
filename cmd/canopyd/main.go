// Copyright 2025 Verdant Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"github.com/verdantlabs/canopy"
	"github.com/verdantlabs/canopy/ai"
	"github.com/verdantlabs/canopy/ai/openai"
	"github.com/verdantlabs/canopy/pipeline"
	"github.com/verdantlabs/canopy/reembed"
	"github.com/verdantlabs/canopy/storage/badger"
	"github.com/verdantlabs/canopy/vector/qdrant"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "canopyd",
		Usage: "Content ingestion and semantic indexing pipeline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"CANOPY_LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run the chunking pipeline until interrupted",
				Action: runCommand,
				Flags: append(systemFlags(),
					&cli.DurationFlag{
						Name:  "poll-interval",
						Usage: "How often the pipeline polls for parsed objects",
						Value: 30 * time.Second,
					},
					&cli.IntFlag{
						Name:  "max-concurrent",
						Usage: "Maximum objects processed concurrently",
						Value: 5,
					},
					&cli.IntFlag{
						Name:  "max-rpm",
						Usage: "Maximum collaborator requests per rolling 60s window",
						Value: 450,
					},
					&cli.DurationFlag{
						Name:  "recovery-interval",
						Usage: "How often to run the recovery sweep (0 disables)",
						Value: 15 * time.Minute,
					},
				),
			},
			{
				Name:   "recover",
				Usage:  "Run a one-off recovery sweep and report what was repaired",
				Action: recoverCommand,
				Flags:  systemFlags(),
			},
			{
				Name:   "integrity",
				Usage:  "Report data-integrity anomalies without repairing them",
				Action: integrityCommand,
				Flags:  systemFlags(),
			},
			{
				Name:   "reembed",
				Usage:  "Reembed all chunks with a new embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
						EnvVars:  []string{"CANOPY_DB"},
					},
					&cli.StringFlag{
						Name:    "embedding-host",
						Usage:   "Embedding service host URL",
						Value:   "http://localhost:11434/v1",
						EnvVars: []string{"CANOPY_EMBEDDING_HOST"},
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
						EnvVars:  []string{"CANOPY_EMBEDDING_MODEL"},
					},
					&cli.StringFlag{
						Name:    "qdrant-host",
						Usage:   "Qdrant gRPC host",
						Value:   "localhost",
						EnvVars: []string{"CANOPY_QDRANT_HOST"},
					},
					&cli.IntFlag{
						Name:    "qdrant-port",
						Usage:   "Qdrant gRPC port",
						Value:   6334,
						EnvVars: []string{"CANOPY_QDRANT_PORT"},
					},
					&cli.StringFlag{
						Name:  "collection",
						Usage: "Qdrant collection name",
						Value: qdrant.DefaultCollection,
					},
					&cli.IntFlag{
						Name:  "dimension",
						Usage: "Embedding vector dimension",
						Value: 768,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Create demo parsed objects and pending jobs for a local pipeline run",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
						EnvVars:  []string{"CANOPY_DB"},
					},
					&cli.IntFlag{
						Name:  "count",
						Usage: "Number of objects to create",
						Value: 10,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// systemFlags are shared by every command that constructs the full system.
func systemFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
			EnvVars:  []string{"CANOPY_DB"},
		},
		&cli.StringFlag{
			Name:    "ai-host",
			Usage:   "OpenAI-compatible service host URL for extraction and embedding",
			Value:   "http://localhost:11434/v1",
			EnvVars: []string{"CANOPY_AI_HOST"},
		},
		&cli.StringFlag{
			Name:    "extractor-model",
			Usage:   "Chat model used for chunk extraction",
			Value:   "qwen2.5:3b",
			EnvVars: []string{"CANOPY_EXTRACTOR_MODEL"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   "embeddinggemma",
			EnvVars: []string{"CANOPY_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "qdrant-host",
			Usage:   "Qdrant gRPC host",
			Value:   "localhost",
			EnvVars: []string{"CANOPY_QDRANT_HOST"},
		},
		&cli.IntFlag{
			Name:    "qdrant-port",
			Usage:   "Qdrant gRPC port",
			Value:   6334,
			EnvVars: []string{"CANOPY_QDRANT_PORT"},
		},
		&cli.StringFlag{
			Name:  "collection",
			Usage: "Qdrant collection name",
			Value: qdrant.DefaultCollection,
		},
		&cli.IntFlag{
			Name:  "dimension",
			Usage: "Embedding vector dimension",
			Value: 768,
		},
	}
}

func buildSystem(c *cli.Context) (*canopy.System, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithExtractorModel(c.String("extractor-model")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	return canopy.NewSystem(c.String("db"),
		canopy.WithAIConfig(aiConfig),
		canopy.WithQdrantConfig(qdrant.Config{
			Host:       c.String("qdrant-host"),
			Port:       c.Int("qdrant-port"),
			Collection: c.String("collection"),
			Dimension:  uint64(c.Int("dimension")),
		}),
	)
}

func runCommand(c *cli.Context) error {
	system, err := buildSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	p, err := system.NewChunkingPipeline(
		pipeline.WithPollInterval(c.Duration("poll-interval")),
		pipeline.WithMaxConcurrent(c.Int("max-concurrent")),
		pipeline.WithMaxRequestsPerWindow(c.Int("max-rpm")),
		pipeline.WithEmbeddingModel(c.String("embedding-model")),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer p.Release()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p.Start(ctx)
	slog.Info("pipeline started", "db", c.String("db"))

	recoveryInterval := c.Duration("recovery-interval")
	if recoveryInterval > 0 {
		service := system.NewRecoveryService(nil)
		go func() {
			ticker := time.NewTicker(recoveryInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := service.PerformRecovery(ctx); err != nil {
						slog.Error("recovery sweep failed", "error", err)
					}
				}
			}
		}()
	}

	<-ctx.Done()
	slog.Info("shutting down, waiting for in-flight objects")
	p.Stop()
	return nil
}

func recoverCommand(c *cli.Context) error {
	system, err := buildSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	service := system.NewRecoveryService(nil)
	report, err := service.PerformRecovery(context.Background())
	if report != nil {
		fmt.Printf("orphaned chunks deleted:  %d\n", report.OrphanedChunksDeleted)
		fmt.Printf("objects demoted:          %d\n", report.ObjectsDemoted)
		fmt.Printf("orphaned links deleted:   %d\n", report.OrphanedLinksDeleted)
		fmt.Printf("objects reset:            %d\n", report.ObjectsReset)
		fmt.Printf("objects promoted:         %d\n", report.ObjectsPromoted)
		fmt.Printf("jobs requeued:            %d\n", report.JobsRequeued)
	}
	return err
}

func integrityCommand(c *cli.Context) error {
	system, err := buildSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	service := system.NewRecoveryService(nil)
	report, err := service.CheckIntegrity(context.Background())
	if report != nil {
		fmt.Println(report)
		if report.Clean() {
			fmt.Println("no anomalies found")
		}
	}
	return err
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repos, err := badger.NewRepositories(backend)
	if err != nil {
		return fmt.Errorf("failed to create repositories: %w", err)
	}
	defer repos.Close()

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		// Extractor values are unused during reembedding.
		ai.WithExtractorHost(c.String("embedding-host")),
		ai.WithExtractorModel("unused"),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := qdrant.NewStore(qdrant.Config{
		Host:       c.String("qdrant-host"),
		Port:       c.Int("qdrant-port"),
		Collection: c.String("collection"),
		Dimension:  uint64(c.Int("dimension")),
	}, embedder)
	if err != nil {
		return fmt.Errorf("failed to connect to vector store: %w", err)
	}
	defer store.Close()

	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reembedder, err := reembed.NewReembedder(repos.Objects, repos.Chunks, repos.Links,
		store, c.String("embedding-model"), config, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
