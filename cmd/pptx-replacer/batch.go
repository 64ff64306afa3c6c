package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/cmd"
)

func newBatchCmd() *cobra.Command {
	args := &cmd.BatchArgs{}

	c := &cobra.Command{
		Use:   "batch <dir>",
		Short: "批量执行目录下的任务文件",
		Example: `  pptx-replacer batch jobs -o out
  pptx-replacer batch jobs --pattern "weekly/*.hcl" -j 8`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, positional []string) error {
			args.InputDir = positional[0]

			result, err := cmd.NewRunner(nil, nil).RunBatch(c.Context(), args)
			if err != nil {
				return err
			}

			table := pterm.TableData{
				{"任务", "替换", "失败"},
				{
					strconv.Itoa(result.ProcessedFiles),
					strconv.Itoa(result.Replacements),
					strconv.Itoa(len(result.Errors)),
				},
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(table).Render(); err != nil {
				return errors.Errorf("输出汇总失败: %w", err)
			}
			for _, jobErr := range result.Errors {
				pterm.Error.Println(jobErr)
			}
			fmt.Fprintln(c.OutOrStdout(), cmd.FormatSummary(result))

			if !result.Success {
				return errors.Errorf("%d 个任务处理失败", len(result.Errors))
			}
			return nil
		},
	}

	c.Flags().StringVarP(&args.OutputDir, "output-dir", "o", "", "输出目录，默认写入任务文件中的 output")
	c.Flags().StringSliceVar(&args.Patterns, "pattern", nil, "任务文件匹配模式，默认 "+cmd.DefaultJobPattern)
	c.Flags().StringSliceVar(&args.Exclude, "exclude", nil, "排除的文件名模式")
	c.Flags().IntVarP(&args.Concurrency, "concurrency", "j", 4, "并发任务数 (1-50)")
	return c
}
