package templates

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// CachedStore 缓存模板原始字节，只缓存字节，每次调用仍会得到新的文档模型
type CachedStore struct {
	inner Store

	mu      sync.RWMutex
	entries map[string][]byte
	// gens 与 epoch 在失效时递增，读取期间发生失效的结果不写入缓存
	gens    map[string]uint64
	epoch   uint64
	watcher *fsnotify.Watcher
}

// NewCachedStore 包装一个模板仓库
func NewCachedStore(inner Store) *CachedStore {
	return &CachedStore{
		inner:   inner,
		entries: make(map[string][]byte),
		gens:    make(map[string]uint64),
	}
}

// Load 读取模板，命中缓存时不访问底层仓库
func (c *CachedStore) Load(ctx context.Context, name string) ([]byte, error) {
	key, ok := CleanName(name)
	if !ok {
		return c.inner.Load(ctx, name)
	}

	c.mu.RLock()
	data, hit := c.entries[key]
	gen, epoch := c.gens[key], c.epoch
	c.mu.RUnlock()
	if hit {
		return data, nil
	}

	data, err := c.inner.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gens[key] == gen && c.epoch == epoch {
		c.entries[key] = data
	}
	c.mu.Unlock()
	return data, nil
}

// List 列出底层仓库的模板，底层仓库不支持列出时返回错误
func (c *CachedStore) List(ctx context.Context) ([]string, error) {
	lister, ok := c.inner.(Lister)
	if !ok {
		return nil, errors.New("模板仓库不支持列出")
	}
	return lister.List(ctx)
}

// Len 返回缓存条目数
func (c *CachedStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Invalidate 移除单个模板的缓存
func (c *CachedStore) Invalidate(name string) {
	key, ok := CleanName(name)
	if !ok {
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()
}

// InvalidateAll 清空缓存
func (c *CachedStore) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.gens = make(map[string]uint64)
	c.epoch++
	c.mu.Unlock()
}

// Watch 监听模板目录，文件被修改、删除或重命名时使对应缓存失效
func (c *CachedStore) Watch(ctx context.Context, dir string) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return errors.Errorf("解析模板目录失败: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Errorf("创建文件监听器失败: %w", err)
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return errors.Errorf("监听模板目录 %s 失败: %w", root, err)
	}

	c.mu.Lock()
	if c.watcher != nil {
		c.watcher.Close()
	}
	c.watcher = watcher
	c.mu.Unlock()

	go c.watchLoop(ctx, watcher, root)

	zerolog.Ctx(ctx).Info().Str("dir", root).Msg("开始监听模板目录")
	return nil
}

func (c *CachedStore) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, root string) {
	logger := zerolog.Ctx(ctx)
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				// 新建的子目录也需要监听
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Create) {
				continue
			}
			name := relative(root, event.Name)
			c.Invalidate(name)
			logger.Debug().Str("template", name).Str("op", event.Op.String()).Msg("模板缓存已失效")

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("模板目录监听出错")
		}
	}
}

// Close 停止监听
func (c *CachedStore) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	c.watcher = nil
	return err
}

func relative(root, name string) string {
	rel, err := filepath.Rel(root, name)
	if err != nil {
		return name
	}
	return filepath.ToSlash(rel)
}
