package domain

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/pkg/pptx"
)

var (
	ErrTemplateLoad      = errors.Base("加载模板失败")
	ErrMismatchedPayload = errors.Base("占位符值与类型不匹配")
	ErrSerialization     = errors.Base("序列化演示文稿失败")
	ErrEmptyKey          = errors.Base("占位符键不能为空")
)

// PlaceholderType 占位符替换策略
type PlaceholderType string

const (
	TypeText   PlaceholderType = "TEXT"   // 替换 {{key}}
	TypeInsert PlaceholderType = "INSERT" // 替换 $key
	TypeImage  PlaceholderType = "IMAGE"  // 用图片替换包含 {{key}} 的文本形状
)

// ParsePlaceholderType 解析类型名称，大小写不敏感；未知名称原样保留
func ParsePlaceholderType(s string) PlaceholderType {
	upper := PlaceholderType(strings.ToUpper(strings.TrimSpace(s)))
	switch upper {
	case TypeText, TypeInsert, TypeImage:
		return upper
	case "":
		return TypeText
	default:
		return PlaceholderType(s)
	}
}

// Placeholder 一次替换请求
type Placeholder struct {
	Key   string
	Type  PlaceholderType
	Value any
}

// Text 创建文本替换请求
func Text(key string, value any) Placeholder {
	return Placeholder{Key: key, Type: TypeText, Value: value}
}

// Insert 创建插入替换请求
func Insert(key string, value any) Placeholder {
	return Placeholder{Key: key, Type: TypeInsert, Value: value}
}

// Image 创建图片替换请求
func Image(key string, asset ImageAsset) Placeholder {
	return Placeholder{Key: key, Type: TypeImage, Value: asset}
}

// Validate 检查键和值是否可用于对应的替换策略，未知类型不在此处报错
func (p Placeholder) Validate() error {
	if p.Key == "" {
		return ErrEmptyKey
	}
	switch p.Type {
	case TypeText, TypeInsert:
		_, err := p.StringValue()
		return err
	case TypeImage:
		_, err := p.ImageValue()
		return err
	}
	return nil
}

// StringValue 将值转换为替换文本
func (p Placeholder) StringValue() (string, error) {
	switch v := p.Value.(type) {
	case nil, ImageAsset, *ImageAsset, []byte:
		return "", p.mismatch()
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, bool:
		return fmt.Sprint(v), nil
	default:
		return "", p.mismatch()
	}
}

// ImageValue 返回图片值
func (p Placeholder) ImageValue() (ImageAsset, error) {
	var asset ImageAsset
	switch v := p.Value.(type) {
	case ImageAsset:
		asset = v
	case *ImageAsset:
		if v == nil {
			return ImageAsset{}, p.mismatch()
		}
		asset = *v
	default:
		return ImageAsset{}, p.mismatch()
	}
	if len(asset.Data) == 0 {
		return ImageAsset{}, errors.Errorf("%w: 占位符 %q 的图片数据为空", ErrMismatchedPayload, p.Key)
	}
	return asset, nil
}

func (p Placeholder) mismatch() error {
	return errors.Errorf("%w: 占位符 %q (%s) 的值类型为 %T", ErrMismatchedPayload, p.Key, p.Type, p.Value)
}

// ImageAsset 图片字节及其 MIME 类型
type ImageAsset struct {
	Data        []byte
	ContentType string
}

// PictureType 根据 MIME 类型推断图片格式
func (a ImageAsset) PictureType() pptx.PictureType {
	return PictureTypeFor(a.ContentType)
}

// PictureTypeFor MIME 类型到图片格式的映射，空值或未知类型按 PNG 处理
func PictureTypeFor(contentType string) pptx.PictureType {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch ct {
	case "image/jpeg", "image/jpg":
		return pptx.PictureTypeJPEG
	case "image/gif":
		return pptx.PictureTypeGIF
	case "image/bmp":
		return pptx.PictureTypeBMP
	case "image/tiff":
		return pptx.PictureTypeTIFF
	default:
		return pptx.PictureTypePNG
	}
}

// TemplateData 模板名称和按顺序执行的替换请求
type TemplateData struct {
	TemplateName string
	Placeholders []Placeholder
}

// Result 单个替换请求的执行结果
type Result struct {
	Key          string
	Type         PlaceholderType
	Handled      bool // 没有策略接受请求时为 false
	Replacements int
	Err          error
}

// ProcessResult 批量处理结果
type ProcessResult struct {
	Success        bool
	ProcessedFiles int
	Replacements   int
	Errors         []error
}

// ReplacementRecord 写入文档属性的替换记录
type ReplacementRecord struct {
	Key         string          `json:"key"`
	Type        PlaceholderType `json:"type"`
	Occurrences int             `json:"occurrences"`
	Timestamp   time.Time       `json:"timestamp"`
	Version     int             `json:"version"`
}
