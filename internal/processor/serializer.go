package processor

import (
	"mime"
	"path"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/pkg/pptx"
)

// Download 供下载的生成结果
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ContentDisposition 返回 attachment 形式的 Content-Disposition 头
func (d *Download) ContentDisposition() string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename})
}

// ToBytes 将演示文稿序列化为字节
func ToBytes(pres *pptx.Presentation) ([]byte, error) {
	data, err := pres.Bytes()
	if err != nil {
		return nil, errors.Errorf("%w: %w", domain.ErrSerialization, err)
	}
	return data, nil
}

// PrepareDownload 序列化演示文稿并包装为下载结果
func PrepareDownload(pres *pptx.Presentation, filename string) (*Download, error) {
	data, err := ToBytes(pres)
	if err != nil {
		return nil, err
	}
	return &Download{
		Filename:    filename,
		ContentType: pptx.PresentationMimeType,
		Data:        data,
	}, nil
}

// GeneratedFilename 由模板名生成输出文件名，例如 weekly.pptx -> weekly_generated.pptx
func GeneratedFilename(templateName string) string {
	base := path.Base(strings.ReplaceAll(templateName, "\\", "/"))
	if base == "." || base == "/" {
		return "presentation_generated.pptx"
	}
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = "presentation"
	}
	if ext == "" || ext == "." {
		ext = ".pptx"
	}
	return stem + "_generated" + ext
}
