package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/allanpk716/pptx_replacer/internal/cmd"
)

func newGenerateCmd() *cobra.Command {
	args := &cmd.GenerateArgs{}
	var quiet bool

	c := &cobra.Command{
		Use:   "generate <config>",
		Short: "按任务文件生成报告",
		Long: `读取 JSON、YAML 或 HCL 任务文件，替换模板中的占位符并写出结果。
模板扩展名为 .docx 时按 Word 文档处理，只支持 TEXT 与 INSERT。`,
		Example: `  pptx-replacer generate jobs/weekly.yaml
  pptx-replacer generate jobs/weekly.hcl -o out/week-7.pptx --continue-on-error`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, positional []string) error {
			args.ConfigFile = positional[0]

			result, err := cmd.NewRunner(nil, nil).RunJob(c.Context(), args)
			if err != nil {
				return err
			}

			if !quiet {
				for _, res := range result.Results {
					fmt.Fprintln(c.OutOrStdout(), cmd.FormatResult(res))
				}
			}
			pterm.Success.Printfln("已生成 %s (替换 %d 处)", result.OutputFile, result.Replacements)
			return nil
		},
	}

	c.Flags().StringVarP(&args.OutputFile, "output", "o", "", "输出文件路径，默认使用任务文件中的 output")
	c.Flags().BoolVar(&args.ContinueOnError, "continue-on-error", false, "单个占位符失败时继续处理")
	c.Flags().BoolVarP(&quiet, "quiet", "q", false, "不输出每个占位符的处理结果")
	return c
}
