package docxfill

import (
	"bytes"
	"context"
	"html"
	"regexp"
	"slices"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/internal/matcher"
)

// ErrInvalidDocument Word 模板无法读取
var ErrInvalidDocument = errors.Base("无效的 docx 文档")

var xmlTag = regexp.MustCompile(`<[^>]+>`)

// Fill 在 Word 模板中执行 TEXT 与 INSERT 请求，IMAGE 请求只记录警告
//
// 任一请求的值不匹配类型时立即返回错误。正文、页眉和页脚都会被替换，
// 替换次数只统计正文。
func Fill(ctx context.Context, data []byte, placeholders []domain.Placeholder) ([]byte, []domain.Result, error) {
	logger := zerolog.Ctx(ctx)

	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, errors.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	defer reader.Close()
	doc := reader.Editable()
	doc.SetContent(mergeSplitMarkers(doc.GetContent(), markers(placeholders)))

	results := make([]domain.Result, 0, len(placeholders))
	for _, p := range placeholders {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		result := domain.Result{Key: p.Key, Type: p.Type}

		var marker string
		switch p.Type {
		case domain.TypeText:
			marker = matcher.FormatDelimited(p.Key)
		case domain.TypeInsert:
			marker = matcher.FormatSigil(p.Key)
		default:
			logger.Warn().Str("key", p.Key).Str("type", string(p.Type)).Msg("Word 模板不支持该占位符类型，已跳过")
			results = append(results, result)
			continue
		}

		if err := p.Validate(); err != nil {
			return nil, nil, err
		}
		value, _ := p.StringValue()

		result.Handled = true
		result.Replacements = strings.Count(doc.GetContent(), marker)
		if result.Replacements > 0 {
			if err := doc.Replace(marker, value, -1); err != nil {
				return nil, nil, errors.Errorf("替换 %s 失败: %w", marker, err)
			}
		}
		if err := doc.ReplaceHeader(marker, value); err != nil {
			logger.Debug().Err(err).Str("key", p.Key).Msg("替换页眉失败")
		}
		if err := doc.ReplaceFooter(marker, value); err != nil {
			logger.Debug().Err(err).Str("key", p.Key).Msg("替换页脚失败")
		}

		logger.Debug().Str("key", p.Key).Int("occurrences", result.Replacements).Msg("替换完成")
		results = append(results, result)
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, nil, errors.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	return buf.Bytes(), results, nil
}

// markers 返回 TEXT 与 INSERT 请求对应的标记
func markers(placeholders []domain.Placeholder) []string {
	var out []string
	for _, p := range placeholders {
		switch {
		case p.Key == "":
		case p.Type == domain.TypeText:
			out = append(out, matcher.FormatDelimited(p.Key))
		case p.Type == domain.TypeInsert:
			out = append(out, matcher.FormatSigil(p.Key))
		}
	}
	return out
}

// Content 返回文档正文 XML
func Content(data []byte) (string, error) {
	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	defer reader.Close()
	return reader.Editable().GetContent(), nil
}

// Placeholders 返回正文中去重后的 {{key}} 键，按段落扫描，跨 run 拆分的标记也能识别
func Placeholders(data []byte) ([]string, error) {
	content, err := Content(data)
	if err != nil {
		return nil, err
	}
	paragraphs := strings.Split(content, "</w:p>")
	for i, p := range paragraphs {
		paragraphs[i] = html.UnescapeString(xmlTag.ReplaceAllString(p, ""))
	}
	return matcher.ScanKeys(slices.Values(paragraphs)), nil
}
