// Package templates 提供模板文件的读取与缓存
package templates

import (
	"context"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

var ErrTemplateNotFound = errors.Base("模板不存在")

// Store 按名称读取模板原始字节
type Store interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// Lister 可以列出模板的仓库
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// FSStore 基于文件系统的模板仓库
type FSStore struct {
	fsys fs.FS
}

// NewFSStore 创建基于任意文件系统的模板仓库
func NewFSStore(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys}
}

// NewDirStore 创建以目录为根的模板仓库
func NewDirStore(dir string) *FSStore {
	return NewFSStore(os.DirFS(dir))
}

// CleanName 规范化模板名称，越出根目录的名称返回 false
func CleanName(name string) (string, bool) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	clean = strings.TrimPrefix(clean, "./")
	if clean == "." || !fs.ValidPath(clean) {
		return "", false
	}
	return clean, true
}

// Load 读取模板
func (s *FSStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean, ok := CleanName(name)
	if !ok {
		return nil, errors.Errorf("%w: %q", ErrTemplateNotFound, name)
	}
	data, err := fs.ReadFile(s.fsys, clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Errorf("%w: %s", ErrTemplateNotFound, clean)
		}
		return nil, errors.Errorf("读取模板 %s 失败: %w", clean, err)
	}
	return data, nil
}

// List 返回仓库中全部 PPTX 与 DOCX 模板
func (s *FSStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches, err := doublestar.Glob(s.fsys, "**/*.{pptx,docx}")
	if err != nil {
		return nil, errors.Errorf("列出模板失败: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}
