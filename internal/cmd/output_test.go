package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/allanpk716/pptx_replacer/internal/domain"
)

func TestFormatResult(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	tests := []struct {
		name     string
		result   domain.Result
		prefix   string
		contains string
	}{
		{
			name:     "replaced",
			result:   domain.Result{Key: "title", Type: domain.TypeText, Handled: true, Replacements: 2},
			prefix:   "  ✓ title",
			contains: "替换 2 处",
		},
		{
			name:     "no match",
			result:   domain.Result{Key: "title", Type: domain.TypeText, Handled: true},
			prefix:   "  ? title",
			contains: "未找到占位符",
		},
		{
			name:     "unroutable",
			result:   domain.Result{Key: "clip", Type: "VIDEO"},
			prefix:   "  - clip",
			contains: "没有可用的替换策略",
		},
		{
			name:     "error",
			result:   domain.Result{Key: "logo", Type: domain.TypeImage, Handled: true, Err: errors.New("boom")},
			prefix:   "  ✗ logo",
			contains: "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := FormatResult(tt.result)
			assert.True(t, strings.HasPrefix(line, tt.prefix), line)
			assert.Contains(t, line, tt.contains)
			assert.Contains(t, line, string(tt.result.Type))
		})
	}
}

func TestFormatSummary(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	assert.Equal(t, "处理 3 个任务，替换 7 处，失败 0 个",
		FormatSummary(&domain.ProcessResult{Success: true, ProcessedFiles: 3, Replacements: 7}))
	assert.Equal(t, "处理 1 个任务，替换 0 处，失败 1 个",
		FormatSummary(&domain.ProcessResult{ProcessedFiles: 1, Errors: []error{errors.New("x")}}))
}
