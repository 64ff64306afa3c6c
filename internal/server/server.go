// Package server 通过 HTTP 暴露模板占位符替换与报告生成
package server

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/asset"
	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/internal/metrics"
	"github.com/allanpk716/pptx_replacer/internal/processor"
	"github.com/allanpk716/pptx_replacer/internal/replacer"
	"github.com/allanpk716/pptx_replacer/internal/report"
	"github.com/allanpk716/pptx_replacer/internal/templates"
	"github.com/allanpk716/pptx_replacer/internal/tracking"
	"github.com/allanpk716/pptx_replacer/pkg/pptx"
)

// RequestIDHeader 请求标识头
const RequestIDHeader = "X-Request-ID"

// DefaultMaxBodyBytes 请求体大小上限
const DefaultMaxBodyBytes = 32 << 20

// Server 报告生成 HTTP 服务
type Server struct {
	store   templates.Store
	images  report.ImageLoader
	metrics *metrics.Metrics
	logger  zerolog.Logger
	maxBody int64

	tracking *tracking.Config

	reader  *processor.ReaderService
	reports *processor.ReportService
}

// Option 服务选项
type Option func(*Server)

// WithImages 设置报告接口使用的图片加载器
func WithImages(images report.ImageLoader) Option {
	return func(s *Server) { s.images = images }
}

// WithMetrics 设置指标，同时挂载 /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger 设置基础日志记录器
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithTracking 为生成的演示文稿启用替换追踪
func WithTracking(config *tracking.Config) Option {
	return func(s *Server) { s.tracking = config }
}

// WithMaxBodyBytes 设置请求体大小上限
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// New 创建服务
func New(store templates.Store, opts ...Option) *Server {
	s := &Server{
		store:   store,
		logger:  zerolog.Nop(),
		maxBody: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	dispatcher := replacer.NewDefaultDispatcher()
	var modOpts []processor.Option
	if s.tracking != nil {
		modOpts = append(modOpts, processor.WithTracking(s.tracking))
	}
	s.reports = processor.NewReportService(processor.NewModificationService(store, dispatcher, modOpts...))
	if s.metrics != nil {
		dispatcher.WithObserver(s.metrics)
		s.reports.WithDurationObserver(s.metrics)
	}
	s.reader = processor.NewReaderService(store)
	return s
}

// Handler 返回路由
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Get("/metrics", s.metrics.Handler().ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/templates", s.handleTemplates)
		r.Get("/pptx/placeholders", s.handlePlaceholders)
		r.Post("/pptx/generate", s.handleGenerate)
		r.Post("/pptx/modify", s.handleModify)
		r.Post("/reports/weekly/generate", s.handleWeekly)
		r.Post("/reports/monthly/generate", s.handleMonthly)
		r.Post("/reports/invoice/generate", s.handleInvoice)
	})
	return r
}

// ListenAndServe 启动服务，ctx 取消后优雅关闭
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP 服务已启动")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Errorf("HTTP 服务异常退出: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info().Msg("正在关闭 HTTP 服务")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Errorf("关闭 HTTP 服务失败: %w", err)
	}
	return nil
}

// requestLogger 为每个请求分配标识并写入访问日志
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		logger := s.logger.With().Str("request_id", id).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("请求完成")
	})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.store.(templates.Lister)
	if !ok {
		writeError(w, http.StatusNotImplemented, errors.New("模板仓库不支持列出"))
		return
	}
	names, err := lister.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"templates": names})
}

func (s *Server) handlePlaceholders(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("templatePath")
	if name == "" {
		writeError(w, http.StatusBadRequest, errors.New("缺少 templatePath 参数"))
		return
	}
	keys, err := s.reader.TemplatePlaceholders(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templatePath": name, "placeholders": keys})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var data domain.TemplateData
	if !s.decode(w, r, &data) {
		return
	}
	download, err := s.reports.GenerateReport(r.Context(), data, r.URL.Query().Get("filename"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeDownload(w, download)
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	var data domain.TemplateData
	if !s.decode(w, r, &data) {
		return
	}
	out, err := s.reports.GenerateReportBytes(r.Context(), data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", pptx.PresentationMimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	var req report.WeeklyRequest
	if !s.decode(w, r, &req) {
		return
	}
	rep, err := report.Weekly(r.Context(), req, s.images)
	s.generate(w, r, rep, err)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	var req report.MonthlyRequest
	if !s.decode(w, r, &req) {
		return
	}
	rep, err := report.Monthly(r.Context(), req, s.images)
	s.generate(w, r, rep, err)
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request) {
	var req report.InvoiceRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.generate(w, r, report.Invoice(r.Context(), req), nil)
}

// generate 渲染预设报告，组装阶段的错误都视为请求错误
func (s *Server) generate(w http.ResponseWriter, r *http.Request, rep *report.Report, err error) {
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("组装报告失败")
		writeError(w, http.StatusBadRequest, err)
		return
	}
	download, err := s.reports.GenerateReport(r.Context(), rep.Data, rep.Filename)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeDownload(w, download)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	data, err := io.ReadAll(body)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, errors.Errorf("读取请求体失败: %w", err))
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		writeError(w, http.StatusBadRequest, errors.Errorf("解析请求体失败: %w", err))
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	event := zerolog.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = zerolog.Ctx(r.Context()).Error()
	}
	event.Err(err).Int("status", status).Msg("请求处理失败")
	writeError(w, status, err)
}

// StatusFor 将处理错误映射为 HTTP 状态码
func StatusFor(err error) int {
	switch {
	case errors.Is(err, templates.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, pptx.ErrInvalidPackage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrMismatchedPayload),
		errors.Is(err, domain.ErrEmptyKey),
		errors.Is(err, pptx.ErrEmptyPicture),
		errors.Is(err, asset.ErrInvalidAssetPath),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeDownload(w http.ResponseWriter, d *processor.Download) {
	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Disposition", d.ContentDisposition())
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(d.Data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
