package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tsawler/slidesmith"
	"github.com/tsawler/slidesmith/config"
	"github.com/tsawler/slidesmith/generate"
	"github.com/tsawler/slidesmith/match"
	"github.com/tsawler/slidesmith/metrics"
	"github.com/tsawler/slidesmith/ocr"
	"github.com/tsawler/slidesmith/provider/openai"
	"github.com/tsawler/slidesmith/schema"
	"github.com/tsawler/slidesmith/store"
	"github.com/tsawler/slidesmith/store/postgres"
	"github.com/tsawler/slidesmith/store/sqlite"
)

// app carries state shared by the subcommands.
type app struct {
	loader      *config.Loader
	cfg         *config.Config
	logger      *slog.Logger
	metrics     *metrics.Metrics
	configPath  string
	metricsFile string
	useOCR      bool
}

func newRootCmd() *cobra.Command {
	a := &app{loader: config.NewLoader()}

	root := &cobra.Command{
		Use:           "slidesmith",
		Short:         "Build new slide decks from a library of existing ones",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.metricsFile == "" {
				return nil
			}
			return a.metrics.WriteFile(a.metricsFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("driver", "sqlite", "store driver (sqlite, postgres)")
	flags.String("dsn", "", "store data source name")
	flags.String("storage", "", "directory for ingested decks")
	flags.String("output", "", "directory for generated decks")

	for key, name := range map[string]string{
		"log_level":    "log-level",
		"store.driver": "driver",
		"store.dsn":    "dsn",
		"storage_dir":  "storage",
		"output_dir":   "output",
	} {
		if err := a.loader.BindFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(
		newIngestCmd(a),
		newInspectCmd(a),
		newGenerateCmd(a),
		newAssembleCmd(a),
		newPresentationsCmd(a),
		newSlidesCmd(a),
		newMetadataCmd(a),
	)
	return root
}

func (a *app) init() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := a.loader.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	a.metrics = metrics.New(prometheus.NewRegistry())
	return nil
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch a.cfg.Store.Driver {
	case "postgres":
		s, err = postgres.Open(a.cfg.Store.DSN, a.cfg.Provider.Dimensions)
	default:
		s, err = sqlite.Open(a.cfg.Store.DSN)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (a *app) providerConfig() openai.Config {
	p := a.cfg.Provider
	return openai.Config{
		APIKey:         p.APIKey,
		BaseURL:        p.BaseURL,
		EmbeddingModel: p.EmbeddingModel,
		Dimensions:     p.Dimensions,
		ChatModel:      p.ChatModel,
		Temperature:    p.Temperature,
		CacheSize:      p.CacheSize,
		Timeout:        p.Timeout,
		Logger:         a.logger,
	}
}

func (a *app) embedder() (match.Embedder, error) {
	if a.cfg.Provider.APIKey == "" && a.cfg.Provider.BaseURL == "" {
		return nil, fmt.Errorf("no provider configured; set OPENAI_API_KEY or provider.base_url")
	}
	return openai.NewEmbedder(a.providerConfig())
}

func (a *app) completer() generate.Completer {
	return openai.NewCompleter(a.providerConfig())
}

// extractor returns the schema extractor and a cleanup func for its OCR
// engine.
func (a *app) extractor() (*schema.Extractor, func(), error) {
	x := schema.New().WithLogger(a.logger)
	if !a.useOCR {
		return x, func() {}, nil
	}
	client, err := ocr.New("eng")
	if err != nil {
		return nil, nil, err
	}
	return x.WithRecognizer(client), func() { client.Close() }, nil
}

// service builds a Service backed by the configured store and provider.
// The returned func releases them.
func (a *app) service(ctx context.Context, withCompleter bool) (*slidesmith.Service, func(), error) {
	emb, err := a.embedder()
	if err != nil {
		return nil, nil, err
	}
	x, closeOCR, err := a.extractor()
	if err != nil {
		return nil, nil, err
	}
	st, err := a.openStore(ctx)
	if err != nil {
		closeOCR()
		return nil, nil, err
	}

	m := match.New()
	m.Threshold = a.cfg.Matcher.Threshold
	m.CategoryBoost = a.cfg.Matcher.CategoryBoost
	m.Logger = a.logger

	w := generate.NewWriter()
	w.MaxRetries = a.cfg.Generation.MaxRetries
	w.Logger = a.logger

	svc := &slidesmith.Service{
		Store:      st,
		Embedder:   emb,
		Extractor:  x,
		Matcher:    m,
		Writer:     w,
		Metrics:    a.metrics,
		Logger:     a.logger,
		StorageDir: a.cfg.StorageDir,
		OutputDir:  a.cfg.OutputDir,
	}
	if withCompleter {
		svc.Completer = a.completer()
	}
	return svc, func() {
		st.Close()
		closeOCR()
	}, nil
}

// parseIndices converts a 1-indexed list such as "1,3,5" or "2-4" into
// 0-indexed slide indices, keeping the given order.
func parseIndices(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		first, last, isRange := strings.Cut(part, "-")
		lo, err := strconv.Atoi(strings.TrimSpace(first))
		if err != nil {
			return nil, fmt.Errorf("invalid slide number %q", part)
		}
		hi := lo
		if isRange {
			if hi, err = strconv.Atoi(strings.TrimSpace(last)); err != nil {
				return nil, fmt.Errorf("invalid range %q", part)
			}
		}
		if lo < 1 || hi < lo {
			return nil, fmt.Errorf("invalid slide range %q", part)
		}
		for i := lo; i <= hi; i++ {
			out = append(out, i-1)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no slides in %q", s)
	}
	return out, nil
}
