package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/internal/tracking"
)

// SaveConfig 保存配置到文件，按扩展名选择 JSON 或 YAML
//
// backup 为 true 且目标文件已存在时，先复制一份带时间戳的备份。
func SaveConfig(config *Config, filePath string, backup bool) error {
	if config == nil {
		return errors.New("配置不能为空")
	}

	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		return errors.Errorf("不支持的配置文件格式 %q", ext)
	}
	if err != nil {
		return errors.Errorf("序列化配置失败: %w", err)
	}

	if backup {
		if err := createBackup(filePath); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return errors.Errorf("创建目录失败: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return errors.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}

// createBackup 创建配置文件备份
func createBackup(filePath string) error {
	src, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Errorf("读取原文件失败: %w", err)
	}

	ext := filepath.Ext(filePath)
	name := strings.TrimSuffix(filepath.Base(filePath), ext)
	timestamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(filepath.Dir(filePath), fmt.Sprintf("%s_backup_%s%s", name, timestamp, ext))

	if err := os.WriteFile(backupPath, src, 0o644); err != nil {
		return errors.Errorf("写入备份文件失败: %w", err)
	}
	return nil
}

// GenerateTemplate 生成示例任务配置，kind 为 basic 或 advanced
func GenerateTemplate(kind string) (*Config, error) {
	switch kind {
	case "basic":
		return basicTemplate(), nil
	case "advanced":
		return advancedTemplate(), nil
	default:
		return nil, errors.Errorf("未知的模板类型: %s", kind)
	}
}

func basicTemplate() *Config {
	return &Config{
		ProjectName: "weekly-report",
		Version:     CurrentVersion,
		Template:    "templates/weekly.pptx",
		Output:      "out/weekly_generated.pptx",
		Placeholders: []PlaceholderEntry{
			{Key: "title", Type: string(domain.TypeText), Value: "Weekly Report"},
			{Key: "period", Type: string(domain.TypeText), Value: "2024-01-01 - 2024-01-07"},
			{Key: "revenue", Type: string(domain.TypeInsert), Value: "1000"},
		},
	}
}

func advancedTemplate() *Config {
	config := basicTemplate()
	config.Placeholders = append(config.Placeholders, PlaceholderEntry{
		Key:       "logo",
		Type:      string(domain.TypeImage),
		ImagePath: "assets/logo.png",
	})
	config.DataSource = &DataSource{XLSX: "data/weekly.xlsx"}
	config.Processing = &ProcessingConfig{
		ContinueOnError: true,
		OutputSuffix:    "_generated",
	}
	config.Tracking = &tracking.Config{Enabled: true, MaxHistory: 50}
	return config
}
