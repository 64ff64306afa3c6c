package cmd

import (
	"path/filepath"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// DefaultJobPattern 批量模式默认匹配的任务文件
const DefaultJobPattern = "**/*.{json,yaml,yml,hcl}"

// GenerateArgs 单个任务的参数
type GenerateArgs struct {
	ConfigFile      string
	OutputFile      string
	ContinueOnError bool
}

// BatchArgs 批量任务的参数
type BatchArgs struct {
	InputDir    string
	Patterns    []string
	OutputDir   string
	Concurrency int
	Exclude     []string
}

// DefaultExclude 批量模式默认排除的文件名
var DefaultExclude = []string{"~$*", "*.tmp", ".*"}

// ValidateGenerateArgs 验证单任务参数
func ValidateGenerateArgs(args *GenerateArgs) error {
	if args.ConfigFile == "" {
		return errors.New("配置文件路径不能为空")
	}
	if args.OutputFile != "" && args.OutputFile == args.ConfigFile {
		return errors.New("输出文件不能覆盖配置文件")
	}
	return nil
}

// ValidateBatchArgs 验证批量参数并填充默认值
func ValidateBatchArgs(args *BatchArgs) error {
	if args.InputDir == "" {
		return errors.New("批量模式下必须指定输入目录")
	}
	if len(args.Patterns) == 0 {
		args.Patterns = []string{DefaultJobPattern}
	}
	if args.Exclude == nil {
		args.Exclude = DefaultExclude
	}
	if args.Concurrency == 0 {
		args.Concurrency = 4
	}
	if args.Concurrency < 1 || args.Concurrency > 50 {
		return errors.Errorf("并发数必须在1-50之间，当前: %d", args.Concurrency)
	}
	if args.OutputDir != "" && filepath.Clean(args.OutputDir) == filepath.Clean(args.InputDir) {
		return errors.New("输出目录不能与输入目录相同")
	}
	return nil
}

// GenerateOutputFileName 生成输出文件名，例如 weekly.pptx -> weekly_generated.pptx
func GenerateOutputFileName(templateFile, suffix string) string {
	if suffix == "" {
		suffix = "_generated"
	}
	ext := filepath.Ext(templateFile)
	base := strings.TrimSuffix(templateFile, ext)
	if ext == "" {
		ext = ".pptx"
	}
	return base + suffix + ext
}
