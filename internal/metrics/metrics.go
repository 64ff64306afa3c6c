package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/allanpk716/pptx_replacer/internal/domain"
)

// 替换结果标签
const (
	OutcomeReplaced   = "replaced"
	OutcomeNoMatch    = "no_match"
	OutcomeUnroutable = "unroutable"
	OutcomeError      = "error"
)

// Metrics 占位符替换与报告生成的 Prometheus 指标
//
// 同时实现分发器的结果观察者与报告服务的耗时观察者。
type Metrics struct {
	registry     *prometheus.Registry
	placeholders *prometheus.CounterVec
	replacements *prometheus.CounterVec
	dispatch     *prometheus.HistogramVec
	generation   *prometheus.HistogramVec
}

// New 创建指标并注册到独立的注册表
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		placeholders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pptx_placeholders_total",
			Help: "Placeholder requests by type and outcome.",
		}, []string{"type", "outcome"}),
		replacements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pptx_replacements_total",
			Help: "Replacements performed by type.",
		}, []string{"type"}),
		dispatch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pptx_dispatch_duration_seconds",
			Help:    "Time spent on a single placeholder request.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"type"}),
		generation: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pptx_generation_duration_seconds",
			Help:    "Report generation duration by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	m.registry.MustRegister(
		m.placeholders,
		m.replacements,
		m.dispatch,
		m.generation,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Outcome 返回结果对应的标签
func Outcome(result domain.Result) string {
	switch {
	case result.Err != nil:
		return OutcomeError
	case !result.Handled:
		return OutcomeUnroutable
	case result.Replacements == 0:
		return OutcomeNoMatch
	default:
		return OutcomeReplaced
	}
}

// ObserveDispatch 记录一次替换请求
func (m *Metrics) ObserveDispatch(result domain.Result, elapsed time.Duration) {
	typ := string(result.Type)
	m.placeholders.WithLabelValues(typ, Outcome(result)).Inc()
	if result.Replacements > 0 {
		m.replacements.WithLabelValues(typ).Add(float64(result.Replacements))
	}
	m.dispatch.WithLabelValues(typ).Observe(elapsed.Seconds())
}

// ObserveDuration 记录一次报告生成耗时
func (m *Metrics) ObserveDuration(operation string, elapsed time.Duration) {
	m.generation.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
