package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justestif/moodmatch/internal/web"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  `Serve POST /search, POST /classify, GET /moods and GET /moods/{mood}/themes.`,
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app) error {
		ctx := cmd.Context()

		// load eagerly so a broken model fails at startup, not on the first request
		model, err := a.classifier()
		if err != nil {
			return err
		}
		go func() {
			if err := model.Watch(ctx); err != nil {
				a.logger.Error("watching model artifacts", zap.Error(err))
			}
		}()

		svc, err := a.service(ctx, true)
		if err != nil {
			return err
		}

		addr := a.cfg.Server.Addr
		if flag, _ := cmd.Flags().GetString("addr"); flag != "" {
			addr = flag
		}

		server := web.NewServer(web.ServerConfig{
			Addr:            addr,
			ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
		}, svc, a.logger.Named("http"))
		return server.Run(ctx)
	})
}
