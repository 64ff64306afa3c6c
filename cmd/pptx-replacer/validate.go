package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config>...",
		Short: "检查任务文件是否有效",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, positional []string) error {
			cm := config.NewConfigManager()
			out := c.OutOrStdout()

			failed := 0
			for _, path := range positional {
				cfg, err := cm.LoadConfig(c.Context(), path)
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s %s: %v\n", color.RedString("✗"), path, err)
					continue
				}
				fmt.Fprintf(out, "%s %s (%d 个占位符)\n", color.GreenString("✓"), path, len(cfg.Placeholders))
			}
			if failed > 0 {
				return errors.Errorf("%d 个任务文件无效", failed)
			}
			return nil
		},
	}
}
