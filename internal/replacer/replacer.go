// Package replacer 实现三种占位符替换策略及其分发
package replacer

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/internal/matcher"
	"github.com/allanpk716/pptx_replacer/pkg/pptx"
)

// Replacer 一种替换策略
type Replacer interface {
	Name() string
	// CanHandle 只根据请求类型判断
	CanHandle(p domain.Placeholder) bool
	// Replace 修改演示文稿并返回替换次数
	Replace(ctx context.Context, pres *pptx.Presentation, p domain.Placeholder) (int, error)
}

// replaceInRuns 在所有文本形状的文本片段中替换 marker，未命中的片段保持不变
func replaceInRuns(pres *pptx.Presentation, marker, value string) int {
	total := 0
	for _, slide := range pres.Slides() {
		for _, shape := range slide.TextShapes() {
			for _, paragraph := range shape.Paragraphs() {
				for _, run := range paragraph.Runs() {
					raw := run.RawText()
					if !strings.Contains(raw, marker) {
						continue
					}
					replaced, n := matcher.ReplaceAll(raw, marker, value)
					run.SetText(replaced)
					total += n
				}
			}
		}
	}
	return total
}

// TextReplacer 将 {{key}} 替换为文本
type TextReplacer struct{}

// NewTextReplacer 创建文本替换策略
func NewTextReplacer() *TextReplacer {
	return &TextReplacer{}
}

func (r *TextReplacer) Name() string { return "text" }

func (r *TextReplacer) CanHandle(p domain.Placeholder) bool {
	return p.Type == domain.TypeText
}

func (r *TextReplacer) Replace(ctx context.Context, pres *pptx.Presentation, p domain.Placeholder) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	value, _ := p.StringValue()

	n := replaceInRuns(pres, matcher.FormatDelimited(p.Key), value)
	zerolog.Ctx(ctx).Debug().Str("key", p.Key).Int("occurrences", n).Msg("文本占位符替换完成")
	return n, nil
}

// InsertReplacer 将文本中的 $key 替换为值
//
// 按字面子串匹配，$price 会命中 $priceTotal 的前缀。
type InsertReplacer struct{}

// NewInsertReplacer 创建插入替换策略
func NewInsertReplacer() *InsertReplacer {
	return &InsertReplacer{}
}

func (r *InsertReplacer) Name() string { return "insert" }

func (r *InsertReplacer) CanHandle(p domain.Placeholder) bool {
	return p.Type == domain.TypeInsert
}

func (r *InsertReplacer) Replace(ctx context.Context, pres *pptx.Presentation, p domain.Placeholder) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	value, _ := p.StringValue()

	n := replaceInRuns(pres, matcher.FormatSigil(p.Key), value)
	zerolog.Ctx(ctx).Info().Str("key", p.Key).Int("occurrences", n).Msg("插入占位符替换完成")
	return n, nil
}
