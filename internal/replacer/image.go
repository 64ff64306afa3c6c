package replacer

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/internal/matcher"
	"github.com/allanpk716/pptx_replacer/pkg/pptx"
)

// DefaultPictureAnchor 占位形状没有位置信息时图片使用的位置（左上角，3x2 英寸）
var DefaultPictureAnchor = pptx.Anchor{Width: 2743200, Height: 1828800}

// ImageReplacer 用图片替换第一个包含 {{key}} 的文本形状
type ImageReplacer struct{}

// NewImageReplacer 创建图片替换策略
func NewImageReplacer() *ImageReplacer {
	return &ImageReplacer{}
}

func (r *ImageReplacer) Name() string { return "image" }

func (r *ImageReplacer) CanHandle(p domain.Placeholder) bool {
	return p.Type == domain.TypeImage
}

// Replace 按幻灯片顺序、形状顺序查找，只替换第一个匹配的形状
func (r *ImageReplacer) Replace(ctx context.Context, pres *pptx.Presentation, p domain.Placeholder) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	img, _ := p.ImageValue()
	marker := matcher.FormatDelimited(p.Key)
	logger := zerolog.Ctx(ctx)

	for _, slide := range pres.Slides() {
		for _, shape := range slide.TextShapes() {
			if !strings.Contains(shape.Text(), marker) {
				continue
			}

			anchor, ok := shape.ResolveAnchor()
			if !ok || anchor.Width <= 0 || anchor.Height <= 0 {
				anchor = DefaultPictureAnchor
				logger.Warn().Str("key", p.Key).Int("slide", slide.Number()).Msg("形状没有位置信息，图片使用默认位置和尺寸")
			}

			pd, err := pres.AddPicture(img.Data, img.PictureType())
			if err != nil {
				return 0, errors.Errorf("添加图片失败: %w", err)
			}
			picture, err := slide.CreatePicture(pd)
			if err != nil {
				return 0, errors.Errorf("创建图片形状失败: %w", err)
			}
			picture.SetAnchor(anchor)
			if err := slide.RemoveShape(shape); err != nil {
				return 0, errors.Errorf("移除占位形状失败: %w", err)
			}

			logger.Debug().
				Str("key", p.Key).
				Int("slide", slide.Number()).
				Str("media", pd.PartName).
				Msg("图片占位符替换完成")
			return 1, nil
		}
	}

	logger.Debug().Str("key", p.Key).Msg("未找到图片占位符")
	return 0, nil
}
