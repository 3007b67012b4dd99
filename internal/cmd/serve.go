package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Iron-Ham/codepair/internal/config"
	"github.com/Iron-Ham/codepair/internal/event"
	"github.com/Iron-Ham/codepair/internal/llm"
	"github.com/Iron-Ham/codepair/internal/logging"
	"github.com/Iron-Ham/codepair/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the collaboration API",
	Long: `Serve the HTTP API.

Endpoints:
  POST /api/collaborate     run the pipeline, streamed as Server-Sent Events
  GET  /api/models/ollama   list locally installed Ollama models
  GET  /healthz             liveness probe

Edits to the config file are picked up without a restart: new runs use the
reloaded agent and pipeline settings, runs in flight keep the old ones.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	shutdownTracing, err := setupTracing(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []server.Option
	if cfg.Events.NATSURL != "" {
		nc, err := event.ConnectNATS(cfg.Events.NATSURL)
		if err != nil {
			return err
		}
		defer func() { _ = nc.Drain() }()
		opts = append(opts, server.WithPublisher(nc, cfg.Events.SubjectPrefix))
		logger.Info("mirroring events to nats", "url", cfg.Events.NATSURL, "prefix", cfg.Events.SubjectPrefix)
	}
	if dir := cfg.Events.ResolveTranscriptDir(); dir != "" {
		opts = append(opts, server.WithTranscriptDir(dir))
	}

	discoverer := llm.NewDiscoverer(cfg.Providers.Ollama.Binary, nil)
	srv := server.New(cfg.Server, newPipeline(cfg, logger), discoverer, logger, opts...)

	if viper.ConfigFileUsed() != "" {
		watchConfig(srv, logger)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "codepair listening on %s\n", cfg.Server.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown(context.WithoutCancel(gctx))
	})
	return g.Wait()
}

// watchConfig rebuilds the pipeline whenever the config file changes. An
// invalid edit is logged and the previous pipeline stays in place.
func watchConfig(srv *server.Server, logger *logging.Logger) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		cfg, err := config.Load()
		if err != nil {
			logger.Warn("config reload rejected", "file", e.Name, "error", err.Error())
			return
		}
		srv.SetRunner(newPipeline(cfg, logger))
		logger.Info("config reloaded", "file", e.Name)
	})
	viper.WatchConfig()
}
