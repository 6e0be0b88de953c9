package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"propchat/app/client/searchbot"
	"propchat/app/config"
	"propchat/app/mcpserver"
	"propchat/app/server"
	"propchat/app/service/conversation"
	"propchat/app/service/queue"
	"propchat/app/service/session"
	"propchat/app/ui/chatui"
	"propchat/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const drainTimeout = 5 * time.Second

var configPath string

func main() {
	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the property search assistant in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context())
		},
	}

	rootCmd := &cobra.Command{
		Use:          "propchat",
		Short:        "Conversational property search client",
		SilenceUsage: true,
		RunE:         chatCmd.RunE,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the YAML config file")

	rootCmd.AddCommand(
		chatCmd,
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the chat widget HTTP API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "mcp",
			Short: "Expose the assistant as MCP tools over stdio",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMCP(cmd.Context())
			},
		},
	)

	if err := rootCmd.ExecuteContext(appCtx); err != nil {
		log.Fatalf("command failed: %v", err)
	}
}

func setup(ctx context.Context, logOutput io.Writer) *do.Injector {
	di := do.New()
	do.ProvideValue(di, ctx)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg, logOutput); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, searchbot.NewClient)
	do.Provide(di, queue.New)
	do.Provide(di, conversation.NewFactory)
	do.Provide(di, session.New)
	do.Provide(di, server.New)
	do.Provide(di, mcpserver.New)

	return di
}

func runChat(ctx context.Context) error {
	di := setup(ctx, io.Discard)
	defer di.Shutdown()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		do.MustInvoke[*queue.Service](di).Run(gctx)
		return nil
	})

	g.Go(func() error {
		defer cancel()
		return chatui.Run(gctx, do.MustInvoke[*conversation.Factory](di))
	})

	err := g.Wait()
	flushFeedback(di)

	return err
}

func runServe(ctx context.Context) error {
	di := setup(ctx, os.Stderr)
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	client := do.MustInvoke[*searchbot.Client](di)
	slog.Info("Service started",
		"endpoint", client.Endpoint(),
		"feedback_endpoint", client.FeedbackEndpoint())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		do.MustInvoke[*queue.Service](di).Run(gctx)
		return nil
	})

	g.Go(func() error {
		do.MustInvoke[*session.Registry](di).RunCleanupLoop(gctx)
		return nil
	})

	g.Go(func() error {
		return do.MustInvoke[*server.Server](di).Run(gctx)
	})

	err := g.Wait()
	flushFeedback(di)

	return err
}

// runMCP keeps stdout for the protocol; logs go to stderr.
func runMCP(ctx context.Context) error {
	di := setup(ctx, os.Stderr)
	defer di.Shutdown()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		do.MustInvoke[*queue.Service](di).Run(gctx)
		return nil
	})

	g.Go(func() error {
		defer cancel()
		return do.MustInvoke[*mcpserver.Server](di).Serve(gctx, os.Stdin, os.Stdout)
	})

	err := g.Wait()
	flushFeedback(di)

	return err
}

// flushFeedback delivers feedback queued right before exit.
func flushFeedback(di *do.Injector) {
	queueSvc := do.MustInvoke[*queue.Service](di)
	_ = queueSvc.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	queueSvc.Drain(ctx)
}
