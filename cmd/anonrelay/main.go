package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	cli "github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/yangwenmai/anonrelay/internal/config"
	"github.com/yangwenmai/anonrelay/internal/discord"
	"github.com/yangwenmai/anonrelay/internal/engine"
	"github.com/yangwenmai/anonrelay/internal/moderation"
	"github.com/yangwenmai/anonrelay/internal/ops"
	"github.com/yangwenmai/anonrelay/internal/poster"
	"github.com/yangwenmai/anonrelay/internal/relay"
	"github.com/yangwenmai/anonrelay/internal/router"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	app := cli.App{
		Name:    "anonrelay",
		Usage:   "anonymous channel relay bot with moderation",
		Version: versioninfo.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "optional YAML/TOML/JSON config file; environment variables win",
				EnvVars: []string{"ANONRELAY_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "env-file",
				Usage:   "dotenv file loaded before reading the environment",
				Value:   ".env",
				EnvVars: []string{"ANONRELAY_ENV_FILE"},
			},
		},
		Commands: []*cli.Command{runCmd, checkConfigCmd},
		Action:   runBot,
	}
	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:   "run",
	Usage:  "connect to the chat service and relay messages",
	Action: runBot,
}

var checkConfigCmd = &cli.Command{
	Name:  "check-config",
	Usage: "load and validate configuration, then print a summary",
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		w := cctx.App.Writer
		fmt.Fprintf(w, "provider:          %s (configured: %t)\n", cfg.LLMProvider, cfg.BackendConfigured())
		fmt.Fprintf(w, "channel:           %s\n", cfg.ChannelID)
		fmt.Fprintf(w, "group /anon:       %t\n", cfg.GroupEnabled())
		fmt.Fprintf(w, "poster:            every %s, cooldown %s\n", cfg.PosterInterval, cfg.PosterCooldown)
		fmt.Fprintf(w, "extra keywords:    %d\n", len(cfg.ExtraKeywords))
		fmt.Fprintf(w, "workers:           %d\n", cfg.Workers)
		return nil
	},
}

func loadConfig(cctx *cli.Context) (config.Config, error) {
	config.LoadEnvFile(cctx.String("env-file"))
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg config.Config, w io.Writer) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

func runBot(cctx *cli.Context) error {
	cfg, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	setupLogging(cfg, os.Stdout)
	slog.Info("starting anonrelay", "version", versioninfo.Short())

	// Model backend: optional, decided once.
	var (
		classifier moderation.Classifier
		generator  poster.Generator
	)
	if mc, ok := engine.FromConfig(cfg); ok {
		classifier = engine.NewClassifier(mc)
		var opts []engine.GeneratorOption
		if cfg.PosterSourceURL != "" {
			var extractor engine.ContentExtractor = engine.NewHTTPExtractor(cfg.HTTPTimeout)
			if cfg.LLMProvider == config.ProviderStub {
				extractor = &engine.StubExtractor{}
			}
			opts = append(opts, engine.WithSource(extractor, cfg.PosterSourceURL))
		}
		generator = engine.NewGenerator(mc, cfg.PosterTopic, opts...)
	} else {
		slog.Info("no model backend configured, classifier and poster disabled", "provider", cfg.LLMProvider)
	}

	transport, err := discord.New(cfg.BotToken)
	if err != nil {
		return err
	}

	filter := moderation.NewFilter(classifier, cfg.ExtraKeywords)
	publisher := relay.NewPublisher(transport, cfg.ChannelID)
	rl := relay.New(filter, publisher)
	p := poster.New(generator, publisher, cfg.PosterInterval, cfg.PosterCooldown)

	rt := router.New()
	router.NewBot(rl, transport, cfg.GroupID).Register(rt)
	pool := router.NewPool(cfg.Workers, 3*cfg.HTTPTimeout, "events", rt.Dispatch)

	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.Start(ctx)
		return nil
	})
	g.Go(func() error {
		return transport.Run(ctx, func(ctx context.Context, ev router.Event) error {
			return pool.AddWork(ctx, ev.Key(), ev)
		})
	})
	if cfg.MetricsListen != "" {
		g.Go(func() error {
			return ops.New(p).ListenAndServe(ctx, cfg.MetricsListen)
		})
	}

	err = g.Wait()
	pool.Shutdown()
	if err != nil {
		return err
	}
	slog.Info("anonrelay stopped")
	return nil
}
