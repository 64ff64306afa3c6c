// Package tracking 将替换历史记录到演示文稿的自定义文档属性中
package tracking

import (
	"encoding/json"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/pkg/pptx"
)

const DefaultPropertyName = "PptxReplacerHistory"

// Config 替换追踪配置
type Config struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	PropertyName string `json:"property_name" yaml:"property_name"`
	MaxHistory   int    `json:"max_history" yaml:"max_history"`
}

// History 写入文档属性的替换历史
type History struct {
	Records []domain.ReplacementRecord `json:"records"`
}

// Tracker 收集一次生成过程中的替换结果
type Tracker struct {
	enabled  bool
	property string
	max      int
	now      func() time.Time
	results  []domain.Result
}

// NewTracker 创建追踪器，config 为 nil 时不启用
func NewTracker(config *Config) *Tracker {
	t := &Tracker{property: DefaultPropertyName, now: time.Now}
	if config == nil {
		return t
	}
	t.enabled = config.Enabled
	t.max = config.MaxHistory
	if config.PropertyName != "" {
		t.property = config.PropertyName
	}
	return t
}

// IsEnabled 检查追踪是否启用
func (t *Tracker) IsEnabled() bool {
	return t.enabled
}

// Record 记录一个成功处理的替换结果
func (t *Tracker) Record(result domain.Result) {
	if !t.enabled || !result.Handled || result.Err != nil {
		return
	}
	t.results = append(t.results, result)
}

// Apply 合并文档中已有的历史并写回自定义属性；同一个键的记录会递增版本号
func (t *Tracker) Apply(pres *pptx.Presentation) error {
	if !t.enabled || len(t.results) == 0 {
		return nil
	}

	history, err := ReadHistory(pres, t.property)
	if err != nil {
		return err
	}

	now := t.now()
	for _, res := range t.results {
		record := domain.ReplacementRecord{
			Key:         res.Key,
			Type:        res.Type,
			Occurrences: res.Replacements,
			Timestamp:   now,
			Version:     1,
		}

		updated := false
		for i, existing := range history.Records {
			if existing.Key == res.Key {
				record.Version = existing.Version + 1
				history.Records[i] = record
				updated = true
				break
			}
		}
		if !updated {
			history.Records = append(history.Records, record)
		}
	}

	if t.max > 0 && len(history.Records) > t.max {
		history.Records = history.Records[len(history.Records)-t.max:]
	}

	data, err := json.Marshal(history)
	if err != nil {
		return errors.Errorf("序列化替换历史失败: %w", err)
	}
	if err := pres.SetCustomProperty(t.property, string(data)); err != nil {
		return errors.Errorf("写入替换历史失败: %w", err)
	}
	t.results = nil
	return nil
}

// ReadHistory 读取文档中的替换历史，不存在时返回空历史
func ReadHistory(pres *pptx.Presentation, property string) (*History, error) {
	if property == "" {
		property = DefaultPropertyName
	}
	value, ok, err := pres.CustomProperty(property)
	if err != nil {
		return nil, errors.Errorf("读取替换历史失败: %w", err)
	}
	history := &History{Records: []domain.ReplacementRecord{}}
	if !ok || value == "" {
		return history, nil
	}
	if err := json.Unmarshal([]byte(value), history); err != nil {
		return nil, errors.Errorf("解析替换历史失败: %w", err)
	}
	return history, nil
}
