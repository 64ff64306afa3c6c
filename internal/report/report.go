package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/domain"
)

// 报告模板名称，相对模板目录
const (
	WeeklyTemplate  = "weekly-report.pptx"
	MonthlyTemplate = "monthly-report.pptx"
	InvoiceTemplate = "invoice-template.pptx"
)

// ImageLoader 按名称加载图片
type ImageLoader interface {
	Load(name string) (domain.ImageAsset, error)
}

// Report 组装好的替换请求和下载文件名
type Report struct {
	Data     domain.TemplateData
	Filename string
}

// builder 按顺序收集替换请求
type builder struct {
	images       ImageLoader
	placeholders []domain.Placeholder
}

func (b *builder) text(key string, value any) {
	b.placeholders = append(b.placeholders, domain.Text(key, value))
}

func (b *builder) insert(key string, value any) {
	b.placeholders = append(b.placeholders, domain.Insert(key, value))
}

// image 路径为空时跳过
func (b *builder) image(key, path string) error {
	if path == "" {
		return nil
	}
	if b.images == nil {
		return errors.Errorf("占位符 %s 需要图片，但未配置图片目录", key)
	}
	img, err := b.images.Load(path)
	if err != nil {
		return errors.Errorf("加载图片 %s 失败: %w", key, err)
	}
	b.placeholders = append(b.placeholders, domain.Image(key, img))
	return nil
}

func (b *builder) build(template, filename string) *Report {
	return &Report{
		Data:     domain.TemplateData{TemplateName: template, Placeholders: b.placeholders},
		Filename: filename,
	}
}

// WeeklyRequest 周报参数
type WeeklyRequest struct {
	WeekNumber      int    `json:"weekNumber"`
	ProjectName     string `json:"projectName"`
	TasksCompleted  int    `json:"tasksCompleted"`
	TasksInProgress int    `json:"tasksInProgress"`
	ChartImagePath  string `json:"chartImagePath,omitempty"`
}

// Weekly 组装周报：标题整段替换，项目与任务数插入正文，图表替换图片占位符
func Weekly(ctx context.Context, req WeeklyRequest, images ImageLoader) (*Report, error) {
	if req.WeekNumber == 0 {
		req.WeekNumber = 1
	}
	if req.ProjectName == "" {
		req.ProjectName = "Unknown Project"
	}
	zerolog.Ctx(ctx).Info().Int("week", req.WeekNumber).Str("project", req.ProjectName).Msg("生成周报")

	b := &builder{images: images}
	b.text("reportTitle", fmt.Sprintf("Еженедельный отчет - Неделя %d", req.WeekNumber))
	b.insert("projectName", req.ProjectName)
	b.insert("weekNumber", req.WeekNumber)
	b.insert("tasksCompleted", req.TasksCompleted)
	b.insert("tasksInProgress", req.TasksInProgress)
	if err := b.image("chart", req.ChartImagePath); err != nil {
		return nil, err
	}
	return b.build(WeeklyTemplate, fmt.Sprintf("weekly-report-week-%d.pptx", req.WeekNumber)), nil
}

// MonthlyRequest 月报参数
type MonthlyRequest struct {
	Month             string `json:"month"`
	Year              string `json:"year"`
	CompanyName       string `json:"companyName"`
	Revenue           string `json:"revenue"`
	Expenses          string `json:"expenses"`
	Profit            string `json:"profit"`
	LogoPath          string `json:"logoPath,omitempty"`
	RevenueChartPath  string `json:"revenueChartPath,omitempty"`
	ExpensesChartPath string `json:"expensesChartPath,omitempty"`
}

// Monthly 组装月度财务报告
func Monthly(ctx context.Context, req MonthlyRequest, images ImageLoader) (*Report, error) {
	zerolog.Ctx(ctx).Info().Str("month", req.Month).Str("year", req.Year).Str("company", req.CompanyName).Msg("生成月报")

	b := &builder{images: images}
	b.text("reportTitle", fmt.Sprintf("Финансовый отчет за %s %s", req.Month, req.Year))
	b.insert("companyName", req.CompanyName)
	b.insert("месяц", req.Month)
	b.insert("год", req.Year)
	b.insert("выручка", req.Revenue)
	b.insert("расходы", req.Expenses)
	b.insert("прибыль", req.Profit)
	for _, img := range []struct{ key, path string }{
		{"logo", req.LogoPath},
		{"revenueChart", req.RevenueChartPath},
		{"expensesChart", req.ExpensesChartPath},
	} {
		if err := b.image(img.key, img.path); err != nil {
			return nil, err
		}
	}
	return b.build(MonthlyTemplate, fmt.Sprintf("monthly-report-%s-%s.pptx", req.Month, req.Year)), nil
}
