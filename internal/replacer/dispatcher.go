package replacer

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/pkg/pptx"
)

// Observer 接收每次分发的结果
type Observer interface {
	ObserveDispatch(result domain.Result, elapsed time.Duration)
}

// Dispatcher 按注册顺序选择第一个接受请求的策略
type Dispatcher struct {
	replacers []Replacer
	observer  Observer
}

// NewDispatcher 使用显式的策略表创建分发器
func NewDispatcher(replacers ...Replacer) *Dispatcher {
	return &Dispatcher{replacers: replacers}
}

// NewDefaultDispatcher 注册文本、插入、图片三种策略
func NewDefaultDispatcher() *Dispatcher {
	return NewDispatcher(
		NewTextReplacer(),
		NewInsertReplacer(),
		NewImageReplacer(),
	)
}

// WithObserver 设置结果观察者
func (d *Dispatcher) WithObserver(o Observer) *Dispatcher {
	d.observer = o
	return d
}

// Observer 返回结果观察者，未设置时为 nil
func (d *Dispatcher) Observer() Observer {
	return d.observer
}

// Replacers 返回注册的策略
func (d *Dispatcher) Replacers() []Replacer {
	out := make([]Replacer, len(d.replacers))
	copy(out, d.replacers)
	return out
}

// Dispatch 执行单个替换请求
//
// 没有策略接受的请求只记录警告，返回 Handled 为 false 的结果且不报错。
func (d *Dispatcher) Dispatch(ctx context.Context, pres *pptx.Presentation, p domain.Placeholder) (domain.Result, error) {
	start := time.Now()
	result := domain.Result{Key: p.Key, Type: p.Type}

	for _, r := range d.replacers {
		if !r.CanHandle(p) {
			continue
		}

		n, err := r.Replace(ctx, pres, p)
		result.Handled = true
		result.Replacements = n
		if err != nil {
			result.Err = errors.Errorf("%s 策略处理占位符 %q 失败: %w", r.Name(), p.Key, err)
		}
		d.observe(result, start)
		return result, result.Err
	}

	zerolog.Ctx(ctx).Warn().
		Str("key", p.Key).
		Str("type", string(p.Type)).
		Msg("没有可处理该类型的替换策略，已跳过")
	d.observe(result, start)
	return result, nil
}

func (d *Dispatcher) observe(result domain.Result, start time.Time) {
	if d.observer != nil {
		d.observer.ObserveDispatch(result, time.Since(start))
	}
}
