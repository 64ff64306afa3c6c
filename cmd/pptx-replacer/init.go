package main

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/config"
)

func newInitCmd() *cobra.Command {
	var (
		kind  string
		force bool
	)

	c := &cobra.Command{
		Use:   "init [path]",
		Short: "生成示例任务文件",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, positional []string) error {
			path := "job.yaml"
			if len(positional) == 1 {
				path = positional[0]
			}

			_, err := os.Stat(path)
			exists := err == nil
			if exists && !force {
				return errors.Errorf("%s 已存在，使用 --force 覆盖", path)
			}

			cfg, err := config.GenerateTemplate(kind)
			if err != nil {
				return err
			}
			if err := config.SaveConfig(cfg, path, exists); err != nil {
				return err
			}
			pterm.Success.Printfln("已生成 %s 任务文件 %s", kind, path)
			return nil
		},
	}

	c.Flags().StringVar(&kind, "kind", "basic", "示例类型 (basic, advanced)")
	c.Flags().BoolVarP(&force, "force", "f", false, "覆盖已存在的文件，原文件会先备份")
	return c
}
