package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"mealvault/internal/blobstore"
	"mealvault/internal/config"
	"mealvault/internal/connectivity"
	"mealvault/internal/ingest"
	"mealvault/internal/ledger"
	"mealvault/internal/logging"
	"mealvault/internal/records"
	"mealvault/internal/services/gemini"
	"mealvault/internal/syncqueue"
	"mealvault/internal/transcription"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *slog.Logger {
	cfg, err := c.ensureConfig()
	if err != nil {
		return logging.NewNop()
	}
	return logging.NewFromConfig(cfg)
}

// withStore runs fn against the record store, closing it afterwards.
func (c *commandContext) withStore(fn func(*records.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := records.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// withQueue runs fn against the offline queue, closing it afterwards.
func (c *commandContext) withQueue(fn func(*syncqueue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	queue, err := syncqueue.Open(cfg)
	if err != nil {
		return err
	}
	defer queue.Close()
	return fn(queue)
}

func (c *commandContext) blobStore() (*blobstore.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return blobstore.New(cfg, c.logger())
}

// services bundles the full pipeline for commands that run the AI flow.
type services struct {
	cfg     *config.Config
	store   *records.Store
	blobs   *blobstore.Store
	queue   *syncqueue.Store
	ledger  *ledger.Service
	ingest  *ingest.Service
	replay  *syncqueue.Replayer
	monitor *connectivity.Monitor
}

// withServices wires the stores, AI client, and connectivity probe and runs
// fn. One-shot commands probe connectivity once instead of polling.
func (c *commandContext) withServices(ctx context.Context, fn func(*services) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := c.logger()

	store, err := records.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	queue, err := syncqueue.Open(cfg)
	if err != nil {
		return err
	}
	defer queue.Close()

	blobs, err := blobstore.New(cfg, logger)
	if err != nil {
		return err
	}

	mode, err := transcription.ParseMode(cfg.Apply.ClarificationMode)
	if err != nil {
		return err
	}
	applier := transcription.NewApplier(store, mode, logger)
	client := gemini.NewClient(gemini.Config{
		APIKey:         cfg.Gemini.APIKey,
		BaseURL:        cfg.Gemini.BaseURL,
		Model:          cfg.Gemini.Model,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
	})

	monitor := connectivity.NewMonitor(cfg, nil, logger)
	prober := connectivity.NewHTTPProber(cfg.Sync.ProbeURL, time.Duration(cfg.Sync.ProbeTimeoutSeconds)*time.Second)
	monitor.Signal(ctx, prober.Probe(ctx))

	svc := &services{
		cfg:     cfg,
		store:   store,
		blobs:   blobs,
		queue:   queue,
		ledger:  ledger.New(store, logger),
		ingest:  ingest.New(store, blobs, queue, client, applier, monitor, logger),
		replay:  syncqueue.NewReplayer(queue, store, blobs, client, applier, cfg.Sync.RetryLimit, logger),
		monitor: monitor,
	}
	return fn(svc)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
