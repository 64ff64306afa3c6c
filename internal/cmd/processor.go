package cmd

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/allanpk716/pptx_replacer/internal/config"
	"github.com/allanpk716/pptx_replacer/internal/docxfill"
	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/internal/processor"
	"github.com/allanpk716/pptx_replacer/internal/replacer"
	"github.com/allanpk716/pptx_replacer/internal/templates"
	"github.com/allanpk716/pptx_replacer/pkg/pptx"
)

// JobResult 单个任务的执行结果
type JobResult struct {
	ConfigFile   string
	OutputFile   string
	Replacements int
	Results      []domain.Result
}

// jobObserver 收集单个任务的替换结果并转发给外层观察者
type jobObserver struct {
	results []domain.Result
	next    replacer.Observer
}

func (o *jobObserver) ObserveDispatch(result domain.Result, elapsed time.Duration) {
	o.results = append(o.results, result)
	if o.next != nil {
		o.next.ObserveDispatch(result, elapsed)
	}
}

// Runner 执行任务文件
type Runner struct {
	configs    config.ConfigManager
	dispatcher *replacer.Dispatcher
}

// NewRunner 创建任务执行器，dispatcher 为 nil 时使用默认策略表
func NewRunner(configs config.ConfigManager, dispatcher *replacer.Dispatcher) *Runner {
	if configs == nil {
		configs = config.NewConfigManager()
	}
	if dispatcher == nil {
		dispatcher = replacer.NewDefaultDispatcher()
	}
	return &Runner{configs: configs, dispatcher: dispatcher}
}

// RunJob 执行单个任务，output 为空时依次使用配置中的输出路径和模板名生成的路径
func (r *Runner) RunJob(ctx context.Context, args *GenerateArgs) (*JobResult, error) {
	if err := ValidateGenerateArgs(args); err != nil {
		return nil, err
	}

	cfg, err := r.configs.LoadConfig(ctx, args.ConfigFile)
	if err != nil {
		return nil, err
	}
	if args.ContinueOnError {
		cfg.Processing.ContinueOnError = true
	}

	data, err := r.configs.GetTemplateData(ctx, cfg)
	if err != nil {
		return nil, err
	}

	output := args.OutputFile
	if output == "" {
		output = cfg.Output
	}
	if output == "" {
		output = GenerateOutputFileName(cfg.Template, cfg.Processing.OutputSuffix)
	}
	if filepath.Ext(output) == "" {
		output += templateExt(cfg.Template)
	}

	logger := zerolog.Ctx(ctx).With().Str("config", args.ConfigFile).Str("output", output).Logger()
	ctx = logger.WithContext(ctx)

	result := &JobResult{ConfigFile: args.ConfigFile, OutputFile: output}
	var out []byte
	if strings.EqualFold(filepath.Ext(cfg.Template), ".docx") {
		out, result.Results, err = r.fillDocx(ctx, data)
	} else {
		out, result.Results, err = r.modifyPptx(ctx, cfg, data)
	}
	if err != nil {
		return nil, err
	}
	for _, res := range result.Results {
		result.Replacements += res.Replacements
	}

	if err := writeOutput(output, out); err != nil {
		return nil, err
	}
	logger.Info().Int("replacements", result.Replacements).Msg("任务处理完成")
	return result, nil
}

// modifyPptx 模板所在目录作为模板仓库，每个任务使用独立的分发器收集结果
func (r *Runner) modifyPptx(ctx context.Context, cfg *config.Config, data domain.TemplateData) ([]byte, []domain.Result, error) {
	store := templates.NewDirStore(filepath.Dir(cfg.Template))
	data.TemplateName = filepath.Base(cfg.Template)

	observer := &jobObserver{next: r.dispatcher.Observer()}
	dispatcher := replacer.NewDispatcher(r.dispatcher.Replacers()...).WithObserver(observer)
	svc := processor.NewModificationService(store, dispatcher, processor.WithTracking(cfg.Tracking))

	var (
		pres *pptx.Presentation
		err  error
	)
	if cfg.Processing.ContinueOnError {
		pres, _, err = svc.ModifyCollect(ctx, data)
	} else {
		pres, err = svc.Modify(ctx, data)
	}
	if err != nil {
		return nil, nil, err
	}
	defer pres.Close()

	out, err := processor.ToBytes(pres)
	if err != nil {
		return nil, nil, err
	}
	return out, observer.results, nil
}

func (r *Runner) fillDocx(ctx context.Context, data domain.TemplateData) ([]byte, []domain.Result, error) {
	raw, err := os.ReadFile(data.TemplateName)
	if err != nil {
		return nil, nil, errors.Errorf("%w: %s: %w", domain.ErrTemplateLoad, data.TemplateName, err)
	}
	return docxfill.Fill(ctx, raw, data.Placeholders)
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Errorf("写入输出文件失败: %w", err)
	}
	return nil
}

// RunBatch 并发执行目录下的全部任务文件，单个任务失败只记录日志并跳过
func (r *Runner) RunBatch(ctx context.Context, args *BatchArgs) (*domain.ProcessResult, error) {
	if err := ValidateBatchArgs(args); err != nil {
		return nil, err
	}
	logger := zerolog.Ctx(ctx)

	jobs, err := FindJobFiles(args.InputDir, args.Patterns, args.Exclude)
	if err != nil {
		return nil, errors.Errorf("查找任务文件失败: %w", err)
	}
	if len(jobs) == 0 {
		return nil, errors.Errorf("在目录 %s 中没有找到任务文件", args.InputDir)
	}
	logger.Info().Int("jobs", len(jobs)).Int("concurrency", args.Concurrency).Msg("开始批量处理")

	var (
		mu     sync.Mutex
		result = &domain.ProcessResult{}
	)
	g := new(errgroup.Group)
	g.SetLimit(args.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			jobArgs := &GenerateArgs{ConfigFile: filepath.Join(args.InputDir, job)}
			if args.OutputDir != "" {
				jobArgs.OutputFile = batchOutputFile(args.OutputDir, job)
			}

			logger.Info().Msgf("[%d/%d] 处理任务: %s", i+1, len(jobs), job)
			res, err := r.RunJob(ctx, jobArgs)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error().Err(err).Str("config", job).Msg("任务处理失败，已跳过")
				result.Errors = append(result.Errors, errors.Errorf("%s: %w", job, err))
				return nil
			}
			result.ProcessedFiles++
			result.Replacements += res.Replacements
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Success = len(result.Errors) == 0
	logger.Info().
		Int("processed", result.ProcessedFiles).
		Int("failed", len(result.Errors)).
		Msg("批量处理完成")
	return result, nil
}

// batchOutputFile 按任务文件的相对路径放置输出，扩展名由 RunJob 按模板补全
func batchOutputFile(outputDir, job string) string {
	return filepath.Join(outputDir, strings.TrimSuffix(job, filepath.Ext(job)))
}

func templateExt(template string) string {
	if strings.EqualFold(filepath.Ext(template), ".docx") {
		return ".docx"
	}
	return ".pptx"
}

// FindJobFiles 返回 dir 下匹配任意模式的任务文件（相对路径，已排序），文件名匹配 exclude 的被排除
func FindJobFiles(dir string, patterns, exclude []string) ([]string, error) {
	fsys := os.DirFS(dir)
	seen := make(map[string]struct{})
	var jobs []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, errors.Errorf("匹配 %q 失败: %w", pattern, err)
		}
		for _, m := range matches {
			if excluded(m, exclude) {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			jobs = append(jobs, filepath.FromSlash(m))
		}
	}
	sort.Strings(jobs)
	return jobs, nil
}

func excluded(name string, exclude []string) bool {
	base := path.Base(name)
	for _, pattern := range exclude {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}
