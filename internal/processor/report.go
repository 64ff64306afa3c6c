package processor

import (
	"context"
	"time"

	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/pkg/pptx"
)

// DurationObserver 接收生成耗时
type DurationObserver interface {
	ObserveDuration(operation string, elapsed time.Duration)
}

// ReportService 生成报告，文档在每条返回路径上都会被关闭
type ReportService struct {
	modifier *ModificationService
	observer DurationObserver
}

// NewReportService 创建报告服务
func NewReportService(modifier *ModificationService) *ReportService {
	return &ReportService{modifier: modifier}
}

// WithDurationObserver 设置耗时观察者
func (s *ReportService) WithDurationObserver(o DurationObserver) *ReportService {
	s.observer = o
	return s
}

func (s *ReportService) observe(operation string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveDuration(operation, time.Since(start))
	}
}

// GenerateReportPresentation 返回修改后的文档模型，调用方负责关闭
func (s *ReportService) GenerateReportPresentation(ctx context.Context, data domain.TemplateData) (*pptx.Presentation, error) {
	defer s.observe("presentation", time.Now())
	return s.modifier.Modify(ctx, data)
}

// GenerateReportBytes 生成报告并返回PPTX字节
func (s *ReportService) GenerateReportBytes(ctx context.Context, data domain.TemplateData) ([]byte, error) {
	defer s.observe("bytes", time.Now())

	pres, err := s.modifier.Modify(ctx, data)
	if err != nil {
		return nil, err
	}
	defer pres.Close()

	return ToBytes(pres)
}

// GenerateReport 生成报告并包装为下载结果，filename 为空时由模板名生成
func (s *ReportService) GenerateReport(ctx context.Context, data domain.TemplateData, filename string) (*Download, error) {
	defer s.observe("download", time.Now())

	pres, err := s.modifier.Modify(ctx, data)
	if err != nil {
		return nil, err
	}
	defer pres.Close()

	if filename == "" {
		filename = GeneratedFilename(data.TemplateName)
	}
	return PrepareDownload(pres, filename)
}
