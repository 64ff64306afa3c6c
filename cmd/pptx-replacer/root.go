package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/cmd"
)

// rootOpts 全局参数
type rootOpts struct {
	logLevel string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}
	rootCmd := &cobra.Command{
		Use:   cmd.AppName,
		Short: "PPTX 模板占位符替换工具",
		Long: `pptx-replacer 按任务文件替换 PPTX 模板中的占位符：
  {{key}}  TEXT 整段文本替换
  $key     INSERT 行内插入
  {{key}}  IMAGE 用图片替换包含该标记的文本形状`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			logger, err := newConsoleLogger(opts)
			if err != nil {
				return err
			}
			c.SetContext(logger.WithContext(c.Context()))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "日志级别 (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "输出调试日志")

	rootCmd.AddCommand(
		newGenerateCmd(),
		newBatchCmd(),
		newPlaceholdersCmd(),
		newValidateCmd(),
		newInitCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// newConsoleLogger 创建输出到标准错误的控制台日志
func newConsoleLogger(opts *rootOpts) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil {
		return zerolog.Nop(), errors.Errorf("日志级别无效 %q: %w", opts.logLevel, err)
	}
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	writer := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})
	return zerolog.New(writer).Level(level).With().Timestamp().Logger(), nil
}
