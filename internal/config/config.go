package config

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/allanpk716/pptx_replacer/internal/asset"
	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/internal/tracking"
)

// CurrentVersion 当前任务文件格式版本
const CurrentVersion = "2.0"

// ErrInvalidConfig 任务配置无效
var ErrInvalidConfig = errors.Base("配置无效")

// PlaceholderEntry 表示一个占位符配置项
type PlaceholderEntry struct {
	Key         string `json:"key" yaml:"key"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Value       any    `json:"value,omitempty" yaml:"value,omitempty"`
	ImagePath   string `json:"image_path,omitempty" yaml:"image_path,omitempty"`
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
}

// Keyword 旧版配置中的关键词，只在迁移时读取
type Keyword struct {
	Key        string `json:"key" yaml:"key"`
	Value      string `json:"value" yaml:"value"`
	SourceFile string `json:"source_file,omitempty" yaml:"source_file,omitempty"`
}

// DataSource 占位符表格数据源
type DataSource struct {
	XLSX  string `json:"xlsx" yaml:"xlsx"`
	Sheet string `json:"sheet,omitempty" yaml:"sheet,omitempty"`
}

// ProcessingConfig 处理配置
type ProcessingConfig struct {
	ContinueOnError bool   `json:"continue_on_error" yaml:"continue_on_error"`
	OutputSuffix    string `json:"output_suffix,omitempty" yaml:"output_suffix,omitempty"`
}

// Config 表示一个报告生成任务
type Config struct {
	ProjectName  string             `json:"project_name,omitempty" yaml:"project_name,omitempty"`
	Template     string             `json:"template" yaml:"template"`
	Output       string             `json:"output,omitempty" yaml:"output,omitempty"`
	Placeholders []PlaceholderEntry `json:"placeholders,omitempty" yaml:"placeholders,omitempty"`
	DataSource   *DataSource        `json:"data_source,omitempty" yaml:"data_source,omitempty"`
	Processing   *ProcessingConfig  `json:"processing,omitempty" yaml:"processing,omitempty"`
	Tracking     *tracking.Config   `json:"tracking,omitempty" yaml:"tracking,omitempty"`
	Version      string             `json:"version,omitempty" yaml:"version,omitempty"`
	Keywords     []Keyword          `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// ConfigManager 配置管理接口
type ConfigManager interface {
	LoadConfig(ctx context.Context, filePath string) (*Config, error)
	ValidateConfig(config *Config) error
	GetTemplateData(ctx context.Context, config *Config) (domain.TemplateData, error)
}

// configManager 配置管理器实现
type configManager struct{}

// NewConfigManager 创建新的配置管理器
func NewConfigManager() ConfigManager {
	return &configManager{}
}

// LoadConfig 从文件加载配置，按扩展名选择 JSON、YAML 或 HCL
//
// 相对路径均以配置文件所在目录为基准解析。
func (cm *configManager) LoadConfig(ctx context.Context, filePath string) (*Config, error) {
	if filePath == "" {
		return nil, errors.New("配置文件路径不能为空")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Errorf("读取配置文件失败: %w", err)
	}

	var config *Config
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".json":
		config, err = loadJSON(data)
	case ".yaml", ".yml":
		config, err = loadYAML(data)
	case ".hcl":
		config, err = loadHCL(data, filePath)
	default:
		return nil, errors.Errorf("不支持的配置文件格式 %q", ext)
	}
	if err != nil {
		return nil, err
	}

	if config.Version == "" {
		migrate(ctx, config)
	}
	setDefaultValues(config)
	resolvePaths(config, filepath.Dir(filePath))

	if err := cm.ValidateConfig(config); err != nil {
		return nil, errors.Errorf("配置验证失败: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("config", filePath).
		Str("template", config.Template).
		Int("placeholders", len(config.Placeholders)).
		Msg("配置已加载")
	return config, nil
}

func loadJSON(data []byte) (*Config, error) {
	var config Config
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&config); err != nil {
		return nil, errors.Errorf("解析 JSON 配置失败: %w", err)
	}
	return &config, nil
}

func loadYAML(data []byte) (*Config, error) {
	var config Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return nil, errors.Errorf("解析 YAML 配置失败: %w", err)
	}
	return &config, nil
}

// migrate 将旧版关键词配置迁移为 TEXT 占位符
func migrate(ctx context.Context, config *Config) {
	config.Version = CurrentVersion
	if len(config.Keywords) == 0 {
		return
	}
	for _, keyword := range config.Keywords {
		key := keyword.Key
		if len(key) > 1 && strings.HasPrefix(key, "#") && strings.HasSuffix(key, "#") {
			key = key[1 : len(key)-1]
		}
		config.Placeholders = append(config.Placeholders, PlaceholderEntry{
			Key:   key,
			Type:  string(domain.TypeText),
			Value: keyword.Value,
		})
	}
	zerolog.Ctx(ctx).Info().Int("keywords", len(config.Keywords)).Msg("旧版关键词配置已迁移")
	config.Keywords = nil
}

// setDefaultValues 设置默认值
func setDefaultValues(config *Config) {
	if config.Processing == nil {
		config.Processing = &ProcessingConfig{}
	}
	if config.Processing.OutputSuffix == "" {
		config.Processing.OutputSuffix = "_generated"
	}
	for i := range config.Placeholders {
		if config.Placeholders[i].Type == "" {
			config.Placeholders[i].Type = string(domain.TypeText)
		}
	}
}

func resolvePaths(config *Config, dir string) {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	config.Template = join(config.Template)
	config.Output = join(config.Output)
	for i := range config.Placeholders {
		config.Placeholders[i].ImagePath = join(config.Placeholders[i].ImagePath)
	}
	if config.DataSource != nil {
		config.DataSource.XLSX = join(config.DataSource.XLSX)
	}
}

// ValidateConfig 验证配置的有效性
func (cm *configManager) ValidateConfig(config *Config) error {
	if config == nil {
		return errors.Errorf("%w: 配置不能为空", ErrInvalidConfig)
	}

	if config.Template == "" {
		return errors.Errorf("%w: 模板路径不能为空", ErrInvalidConfig)
	}

	if len(config.Placeholders) == 0 && config.DataSource == nil {
		return errors.Errorf("%w: 占位符列表与数据源不能同时为空", ErrInvalidConfig)
	}

	if config.DataSource != nil && config.DataSource.XLSX == "" {
		return errors.Errorf("%w: 数据源缺少 xlsx 路径", ErrInvalidConfig)
	}

	keySet := make(map[string]bool)
	for i, entry := range config.Placeholders {
		if entry.Key == "" {
			return errors.Errorf("%w: 第 %d 个占位符的 key 不能为空", ErrInvalidConfig, i+1)
		}
		if keySet[entry.Key] {
			return errors.Errorf("%w: 占位符重复: %s", ErrInvalidConfig, entry.Key)
		}
		keySet[entry.Key] = true
		if err := validateEntry(entry); err != nil {
			return errors.Errorf("%w: 第 %d 个占位符: %w", ErrInvalidConfig, i+1, err)
		}
	}

	if t := config.Tracking; t != nil && t.MaxHistory < 0 {
		return errors.Errorf("%w: 历史记录数量不能为负数", ErrInvalidConfig)
	}

	return nil
}

func validateEntry(entry PlaceholderEntry) error {
	switch domain.ParsePlaceholderType(entry.Type) {
	case domain.TypeText, domain.TypeInsert:
		if entry.Value == nil {
			return errors.Errorf("%s 缺少 value", entry.Key)
		}
	case domain.TypeImage:
		if entry.ImagePath == "" {
			return errors.Errorf("%s 缺少 image_path", entry.Key)
		}
	default:
		return errors.Errorf("%s 的类型 %q 未知", entry.Key, entry.Type)
	}
	return nil
}

// GetTemplateData 将配置转换为替换请求，表格数据在前，配置文件中的同名项覆盖表格数据
func (cm *configManager) GetTemplateData(ctx context.Context, config *Config) (domain.TemplateData, error) {
	if config == nil {
		return domain.TemplateData{}, errors.Errorf("%w: 配置不能为空", ErrInvalidConfig)
	}

	var entries []PlaceholderEntry
	if config.DataSource != nil {
		rows, err := LoadXLSX(config.DataSource.XLSX, config.DataSource.Sheet)
		if err != nil {
			return domain.TemplateData{}, err
		}
		zerolog.Ctx(ctx).Debug().Str("xlsx", config.DataSource.XLSX).Int("rows", len(rows)).Msg("读取表格数据")
		entries = rows
	}
	entries = mergeEntries(entries, config.Placeholders)

	data := domain.TemplateData{
		TemplateName: config.Template,
		Placeholders: make([]domain.Placeholder, 0, len(entries)),
	}
	for _, entry := range entries {
		p, err := entry.Placeholder()
		if err != nil {
			return domain.TemplateData{}, err
		}
		data.Placeholders = append(data.Placeholders, p)
	}
	return data, nil
}

// mergeEntries 同名项原位覆盖，新项追加在末尾
func mergeEntries(base, overrides []PlaceholderEntry) []PlaceholderEntry {
	index := make(map[string]int, len(base))
	merged := make([]PlaceholderEntry, 0, len(base)+len(overrides))
	for _, entry := range base {
		if i, ok := index[entry.Key]; ok {
			merged[i] = entry
			continue
		}
		index[entry.Key] = len(merged)
		merged = append(merged, entry)
	}
	for _, entry := range overrides {
		if i, ok := index[entry.Key]; ok {
			merged[i] = entry
			continue
		}
		index[entry.Key] = len(merged)
		merged = append(merged, entry)
	}
	return merged
}

// Placeholder 将配置项转换为替换请求，IMAGE 项会读取图片文件
func (e PlaceholderEntry) Placeholder() (domain.Placeholder, error) {
	typ := domain.ParsePlaceholderType(e.Type)
	if typ != domain.TypeImage {
		return domain.Placeholder{Key: e.Key, Type: typ, Value: e.Value}, nil
	}

	img, err := asset.LoadFile(e.ImagePath)
	if err != nil {
		return domain.Placeholder{}, errors.Errorf("加载占位符 %s 的图片失败: %w", e.Key, err)
	}
	if e.ContentType != "" {
		img.ContentType = e.ContentType
	}
	return domain.Image(e.Key, img), nil
}
