package processor

import (
	"context"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/internal/replacer"
	"github.com/allanpk716/pptx_replacer/internal/templates"
	"github.com/allanpk716/pptx_replacer/internal/tracking"
	"github.com/allanpk716/pptx_replacer/pkg/pptx"
)

// ModificationService 加载模板并按顺序执行替换请求
type ModificationService struct {
	store      templates.Store
	dispatcher *replacer.Dispatcher
	tracking   *tracking.Config
}

// Option 修改服务选项
type Option func(*ModificationService)

// WithTracking 启用替换历史追踪
func WithTracking(config *tracking.Config) Option {
	return func(s *ModificationService) {
		s.tracking = config
	}
}

// NewModificationService 创建修改服务，dispatcher 为 nil 时使用默认策略表
func NewModificationService(store templates.Store, dispatcher *replacer.Dispatcher, opts ...Option) *ModificationService {
	if dispatcher == nil {
		dispatcher = replacer.NewDefaultDispatcher()
	}
	s := &ModificationService{store: store, dispatcher: dispatcher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// openTemplate 每次调用都返回新的文档模型
func openTemplate(ctx context.Context, store templates.Store, name string) (*pptx.Presentation, error) {
	data, err := store.Load(ctx, name)
	if err != nil {
		return nil, errors.Errorf("%w: %s: %w", domain.ErrTemplateLoad, name, err)
	}
	pres, err := pptx.OpenBytes(data)
	if err != nil {
		return nil, errors.Errorf("%w: %s: %w", domain.ErrTemplateLoad, name, err)
	}
	return pres, nil
}

// Modify 执行全部替换请求，任一请求失败即关闭文档并返回错误
//
// 成功时调用方负责关闭返回的演示文稿。
func (s *ModificationService) Modify(ctx context.Context, data domain.TemplateData) (*pptx.Presentation, error) {
	logger := zerolog.Ctx(ctx).With().Str("template", data.TemplateName).Logger()
	ctx = logger.WithContext(ctx)

	pres, err := openTemplate(ctx, s.store, data.TemplateName)
	if err != nil {
		return nil, err
	}

	tracker := tracking.NewTracker(s.tracking)
	for _, p := range data.Placeholders {
		if err := ctx.Err(); err != nil {
			pres.Close()
			return nil, err
		}
		res, err := s.dispatcher.Dispatch(ctx, pres, p)
		if err != nil {
			pres.Close()
			return nil, err
		}
		tracker.Record(res)
	}

	if err := tracker.Apply(pres); err != nil {
		pres.Close()
		return nil, err
	}

	logger.Info().Int("placeholders", len(data.Placeholders)).Msg("模板修改完成")
	return pres, nil
}

// ModifyCollect 执行全部替换请求，单个请求失败不影响后续请求
//
// 只有模板加载失败会返回错误；每个请求的结果按顺序返回。
func (s *ModificationService) ModifyCollect(ctx context.Context, data domain.TemplateData) (*pptx.Presentation, []domain.Result, error) {
	logger := zerolog.Ctx(ctx).With().Str("template", data.TemplateName).Logger()
	ctx = logger.WithContext(ctx)

	pres, err := openTemplate(ctx, s.store, data.TemplateName)
	if err != nil {
		return nil, nil, err
	}

	tracker := tracking.NewTracker(s.tracking)
	results := make([]domain.Result, 0, len(data.Placeholders))
	failed := 0
	for _, p := range data.Placeholders {
		res, err := s.dispatcher.Dispatch(ctx, pres, p)
		if err != nil {
			failed++
			logger.Warn().Err(err).Str("key", p.Key).Msg("占位符替换失败，继续处理")
		}
		tracker.Record(res)
		results = append(results, res)
	}

	if err := tracker.Apply(pres); err != nil {
		pres.Close()
		return nil, nil, err
	}

	logger.Info().
		Int("placeholders", len(data.Placeholders)).
		Int("failed", failed).
		Msg("模板修改完成")
	return pres, results, nil
}
