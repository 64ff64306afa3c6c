package processor

import (
	"context"
	"iter"

	"github.com/rs/zerolog"

	"github.com/allanpk716/pptx_replacer/internal/matcher"
	"github.com/allanpk716/pptx_replacer/internal/templates"
	"github.com/allanpk716/pptx_replacer/pkg/pptx"
)

// ReaderService 读取模板并发现其中的占位符
type ReaderService struct {
	store templates.Store
}

// NewReaderService 创建读取服务
func NewReaderService(store templates.Store) *ReaderService {
	return &ReaderService{store: store}
}

// LoadTemplate 加载模板为新的文档模型，调用方负责关闭
func (s *ReaderService) LoadTemplate(ctx context.Context, name string) (*pptx.Presentation, error) {
	return openTemplate(ctx, s.store, name)
}

// shapeTexts 按幻灯片、形状顺序返回文本形状的文本
func shapeTexts(pres *pptx.Presentation) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, slide := range pres.Slides() {
			for _, shape := range slide.TextShapes() {
				if !yield(shape.Text()) {
					return
				}
			}
		}
	}
}

// ExtractPlaceholders 返回演示文稿中去重后的 {{key}} 键，按首次出现排序
func (s *ReaderService) ExtractPlaceholders(ctx context.Context, pres *pptx.Presentation) []string {
	keys := matcher.ScanKeys(shapeTexts(pres))
	zerolog.Ctx(ctx).Info().Int("count", len(keys)).Msg("发现占位符")
	return keys
}

// TemplatePlaceholders 加载模板并返回其中的占位符
func (s *ReaderService) TemplatePlaceholders(ctx context.Context, name string) ([]string, error) {
	pres, err := s.LoadTemplate(ctx, name)
	if err != nil {
		return nil, err
	}
	defer pres.Close()
	return s.ExtractPlaceholders(ctx, pres), nil
}
