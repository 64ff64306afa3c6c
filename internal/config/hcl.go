package config

import (
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/tracking"
)

// hclConfig HCL 任务文件结构
//
//	template = "weekly.pptx"
//	placeholder "title" {
//	  value = upper(env.TEAM)
//	}
type hclConfig struct {
	ProjectName  string           `hcl:"project_name,optional"`
	Template     string           `hcl:"template"`
	Output       string           `hcl:"output,optional"`
	Version      string           `hcl:"version,optional"`
	Placeholders []hclPlaceholder `hcl:"placeholder,block"`
	DataSource   *hclDataSource   `hcl:"data_source,block"`
	Processing   *hclProcessing   `hcl:"processing,block"`
	Tracking     *hclTracking     `hcl:"tracking,block"`
}

type hclPlaceholder struct {
	Key         string  `hcl:"key,label"`
	Type        string  `hcl:"type,optional"`
	Value       *string `hcl:"value,optional"`
	ImagePath   string  `hcl:"image_path,optional"`
	ContentType string  `hcl:"content_type,optional"`
}

type hclDataSource struct {
	XLSX  string `hcl:"xlsx"`
	Sheet string `hcl:"sheet,optional"`
}

type hclProcessing struct {
	ContinueOnError bool   `hcl:"continue_on_error,optional"`
	OutputSuffix    string `hcl:"output_suffix,optional"`
}

type hclTracking struct {
	Enabled      bool   `hcl:"enabled,optional"`
	PropertyName string `hcl:"property_name,optional"`
	MaxHistory   int    `hcl:"max_history,optional"`
}

// evalContext 提供 env 变量与少量字符串函数
func evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		env[name] = cty.StringVal(value)
	}
	envVal := cty.EmptyObjectVal
	if len(env) > 0 {
		envVal = cty.ObjectVal(env)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envVal},
		Functions: map[string]function.Function{
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"format": stdlib.FormatFunc,
			"join":   stdlib.JoinFunc,
		},
	}
}

func loadHCL(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Errorf("解析 HCL 配置失败: %s", diags.Error())
	}

	var raw hclConfig
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &raw); diags.HasErrors() {
		return nil, errors.Errorf("解码 HCL 配置失败: %s", diags.Error())
	}

	config := &Config{
		ProjectName: raw.ProjectName,
		Template:    raw.Template,
		Output:      raw.Output,
		Version:     raw.Version,
	}
	for _, p := range raw.Placeholders {
		entry := PlaceholderEntry{
			Key:         p.Key,
			Type:        p.Type,
			ImagePath:   p.ImagePath,
			ContentType: p.ContentType,
		}
		if p.Value != nil {
			entry.Value = *p.Value
		}
		config.Placeholders = append(config.Placeholders, entry)
	}
	if raw.DataSource != nil {
		config.DataSource = &DataSource{XLSX: raw.DataSource.XLSX, Sheet: raw.DataSource.Sheet}
	}
	if raw.Processing != nil {
		config.Processing = &ProcessingConfig{
			ContinueOnError: raw.Processing.ContinueOnError,
			OutputSuffix:    raw.Processing.OutputSuffix,
		}
	}
	if raw.Tracking != nil {
		config.Tracking = &tracking.Config{
			Enabled:      raw.Tracking.Enabled,
			PropertyName: raw.Tracking.PropertyName,
			MaxHistory:   raw.Tracking.MaxHistory,
		}
	}
	return config, nil
}
