package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/VangaRenuka/SocialConnect/cmd/server"
	"github.com/VangaRenuka/SocialConnect/cmd/setup"
	"github.com/VangaRenuka/SocialConnect/cmd/worker"
	appkafka "github.com/VangaRenuka/SocialConnect/internal/broker"
	"github.com/VangaRenuka/SocialConnect/internal/cache"
	"github.com/VangaRenuka/SocialConnect/internal/config"
	"github.com/VangaRenuka/SocialConnect/internal/logger"
	"github.com/VangaRenuka/SocialConnect/internal/notify"
	"github.com/VangaRenuka/SocialConnect/internal/store"
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func kafkaConfig(cfg *config.Config) appkafka.KafkaConfig {
	return appkafka.KafkaConfig{
		Brokers:      []string{cfg.KafkaBroker},
		Topic:        cfg.KafkaTopic,
		Partition:    cfg.KafkaPartition,
		GroupID:      cfg.KafkaGroupID,
		WriteTimeout: cfg.KafkaWriteTO,
		ReadTimeout:  cfg.KafkaReadTO,
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe() error {
	cfg := config.Get()

	st, err := store.New()
	if err != nil {
		return fmt.Errorf("Cassandra connection failed: %w", err)
	}
	defer st.Close()

	kafkaWriter, err := appkafka.NewKafkaWriter(kafkaConfig(cfg))
	if err != nil {
		return fmt.Errorf("Kafka writer init failed: %w", err)
	}
	defer kafkaWriter.Close()

	c := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer c.Close()

	ctx, stop := signalContext()
	defer stop()

	server.Run(ctx, st, kafkaWriter, c, cfg)
	log.Println("Shutdown completed")
	return nil
}

func runWorker() error {
	cfg := config.Get()

	st, err := store.New()
	if err != nil {
		return fmt.Errorf("Cassandra connection failed: %w", err)
	}

	kafkaReader := appkafka.NewKafkaReader(kafkaConfig(cfg))

	c := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer c.Close()

	ctx, stop := signalContext()
	defer stop()

	notifier := notify.NewService(st, c, logger.New())
	w := worker.New(st, kafkaReader, notifier, 0, 0)
	defer w.Close()

	w.Run(ctx)
	log.Println("Shutdown completed")
	return nil
}

func runSetup() error {
	cfg := config.Get()

	ctx, stop := signalContext()
	defer stop()

	if err := setup.NewRunner(cfg).Run(ctx); err != nil {
		return &exitErr{code: 1, msg: err.Error()}
	}
	return nil
}

func runMigrate() error {
	cfg := config.Get()

	if err := store.EnsureKeyspace(cfg); err != nil {
		return fmt.Errorf("ensure keyspace: %w", err)
	}
	if err := store.RunMigrations(cfg); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Println("Migrations applied")
	return nil
}

func main() {
	config.Init()

	root := &cobra.Command{
		Use:   "socialconnect",
		Short: "SocialConnect social platform backend",
		Long:  "SocialConnect serves the social platform REST and WebSocket API, runs the feed/notification worker and provisions new installations.",
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the API server",
			RunE:  func(*cobra.Command, []string) error { return runServe() },
		},
		&cobra.Command{
			Use:   "worker",
			Short: "Start the feed fan-out and notification worker",
			RunE:  func(*cobra.Command, []string) error { return runWorker() },
		},
		&cobra.Command{
			Use:   "setup",
			Short: "Interactive first-run provisioning",
			RunE:  func(*cobra.Command, []string) error { return runSetup() },
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending schema migrations",
			RunE:  func(*cobra.Command, []string) error { return runMigrate() },
		},
	)

	if err := root.Execute(); err != nil {
		if ee, ok := err.(*exitErr); ok {
			fmt.Fprintln(os.Stderr, ee.msg)
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}
