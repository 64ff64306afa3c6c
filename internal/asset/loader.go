// Package asset 加载图片替换使用的图片字节
package asset

import (
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/domain"
)

var ErrInvalidAssetPath = errors.Base("图片路径无效")

// FromBytes 用已在内存中的字节构造图片，contentType 原样保留，为空时图片格式按 PNG 处理
func FromBytes(data []byte, contentType string) domain.ImageAsset {
	return domain.ImageAsset{Data: data, ContentType: contentType}
}

// LoadFile 读取磁盘上的图片
func LoadFile(filePath string) (domain.ImageAsset, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return domain.ImageAsset{}, errors.Errorf("读取图片 %s 失败: %w", filePath, err)
	}
	return domain.ImageAsset{Data: data, ContentType: sniff(data, filePath)}, nil
}

// sniff 优先使用内容探测的图片类型，其次按扩展名推断
func sniff(data []byte, name string) string {
	if len(data) > 0 {
		if mt := mimetype.Detect(data); strings.HasPrefix(mt.String(), "image/") {
			return mt.String()
		}
	}
	if ext := filepath.Ext(name); ext != "" {
		if ct := mime.TypeByExtension(strings.ToLower(ext)); ct != "" {
			return ct
		}
	}
	return ""
}

// Loader 在固定根目录下加载图片，拒绝越出根目录的路径
type Loader struct {
	fsys fs.FS
}

// NewLoader 创建以 dir 为根目录的加载器
func NewLoader(dir string) *Loader {
	return &Loader{fsys: os.DirFS(dir)}
}

// NewFSLoader 创建基于任意文件系统的加载器
func NewFSLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// Load 读取根目录下的相对路径
func (l *Loader) Load(name string) (domain.ImageAsset, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if !fs.ValidPath(clean) || clean == "." {
		return domain.ImageAsset{}, errors.Errorf("%w: %q", ErrInvalidAssetPath, name)
	}
	data, err := fs.ReadFile(l.fsys, clean)
	if err != nil {
		return domain.ImageAsset{}, errors.Errorf("读取图片 %s 失败: %w", name, err)
	}
	return domain.ImageAsset{Data: data, ContentType: sniff(data, clean)}, nil
}
