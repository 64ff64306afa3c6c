package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/asset"
	"github.com/allanpk716/pptx_replacer/internal/config"
	"github.com/allanpk716/pptx_replacer/internal/metrics"
	"github.com/allanpk716/pptx_replacer/internal/server"
	"github.com/allanpk716/pptx_replacer/internal/templates"
)

func newServeCmd() *cobra.Command {
	var (
		envFiles []string
		addr     string
	)

	c := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		Long: `从环境变量读取配置并启动 HTTP 服务：
  PPTX_LISTEN_ADDR    监听地址，默认 :8080
  PPTX_TEMPLATES_DIR  模板目录，默认 templates
  PPTX_ASSETS_DIR     报告图片目录，默认 assets
  PPTX_LOG_LEVEL      日志级别，默认 info
  PPTX_WATCH          模板变更时刷新缓存`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig(envFiles...)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}

			level, err := zerolog.ParseLevel(cfg.LogLevel)
			if err != nil {
				return errors.Errorf("PPTX_LOG_LEVEL 取值无效 %q: %w", cfg.LogLevel, err)
			}
			logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
			ctx := logger.WithContext(c.Context())

			store := templates.NewCachedStore(templates.NewDirStore(cfg.TemplatesDir))
			defer store.Close()
			if cfg.Watch {
				if err := store.Watch(ctx, cfg.TemplatesDir); err != nil {
					return err
				}
			}

			srv := server.New(store,
				server.WithImages(asset.NewLoader(cfg.AssetsDir)),
				server.WithMetrics(metrics.New()),
				server.WithLogger(logger),
			)
			logger.Info().
				Str("templates", cfg.TemplatesDir).
				Str("assets", cfg.AssetsDir).
				Bool("watch", cfg.Watch).
				Msg("服务配置已加载")
			return srv.ListenAndServe(ctx, cfg.ListenAddr)
		},
	}

	c.Flags().StringSliceVar(&envFiles, "env-file", config.DefaultEnvFiles, "环境文件，不存在时忽略")
	c.Flags().StringVar(&addr, "addr", "", "监听地址，覆盖 PPTX_LISTEN_ADDR")
	return c
}
