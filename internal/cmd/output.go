package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/allanpk716/pptx_replacer/internal/domain"
)

// AppName 程序名称
const AppName = "pptx-replacer"

const (
	resultIndent = 2
	keyWidth     = 24
	typeWidth    = 8
)

// FormatResult 将单个占位符的处理结果格式化为一行
func FormatResult(result domain.Result) string {
	var prefix, status string
	switch {
	case result.Err != nil:
		prefix = color.RedString("✗")
		status = result.Err.Error()
	case !result.Handled:
		prefix = color.HiBlackString("-")
		status = "没有可用的替换策略"
	case result.Replacements == 0:
		prefix = color.YellowString("?")
		status = "未找到占位符"
	default:
		prefix = color.GreenString("✓")
		status = fmt.Sprintf("替换 %d 处", result.Replacements)
	}

	return fmt.Sprintf("%s%s %-*s %-*s %s",
		strings.Repeat(" ", resultIndent),
		prefix,
		keyWidth, result.Key,
		typeWidth, result.Type,
		status,
	)
}

// FormatSummary 汇总批量处理结果
func FormatSummary(result *domain.ProcessResult) string {
	line := fmt.Sprintf("处理 %d 个任务，替换 %d 处，失败 %d 个",
		result.ProcessedFiles, result.Replacements, len(result.Errors))
	if result.Success {
		return color.GreenString(line)
	}
	return color.RedString(line)
}
