package domain

import (
	"bytes"
	"encoding/json"

	"gitlab.com/tozd/go/errors"
)

type placeholderJSON struct {
	Key   string          `json:"key"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type imageJSON struct {
	Data        []byte `json:"data"`
	ContentType string `json:"contentType"`
}

// UnmarshalJSON 解析 {"key","type","value"}，IMAGE 的 value 为 {"data": base64, "contentType"}
func (p *Placeholder) UnmarshalJSON(data []byte) error {
	var raw placeholderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Key = raw.Key
	p.Type = ParsePlaceholderType(raw.Type)
	p.Value = nil

	if len(raw.Value) == 0 || bytes.Equal(raw.Value, []byte("null")) {
		return nil
	}

	if p.Type == TypeImage {
		var img imageJSON
		if err := json.Unmarshal(raw.Value, &img); err != nil {
			return errors.Errorf("解析占位符 %q 的图片值失败: %w", raw.Key, err)
		}
		p.Value = ImageAsset{Data: img.Data, ContentType: img.ContentType}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw.Value))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return errors.Errorf("解析占位符 %q 的值失败: %w", raw.Key, err)
	}
	p.Value = v
	return nil
}

// MarshalJSON 与 UnmarshalJSON 对称
func (p Placeholder) MarshalJSON() ([]byte, error) {
	out := struct {
		Key   string          `json:"key"`
		Type  PlaceholderType `json:"type"`
		Value any             `json:"value"`
	}{Key: p.Key, Type: p.Type, Value: p.Value}

	switch v := p.Value.(type) {
	case ImageAsset:
		out.Value = imageJSON{Data: v.Data, ContentType: v.ContentType}
	case *ImageAsset:
		if v != nil {
			out.Value = imageJSON{Data: v.Data, ContentType: v.ContentType}
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON 解析 {"templateName","placeholders"}
func (t *TemplateData) UnmarshalJSON(data []byte) error {
	var raw struct {
		TemplateName string        `json:"templateName"`
		Placeholders []Placeholder `json:"placeholders"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.TemplateName = raw.TemplateName
	t.Placeholders = raw.Placeholders
	return nil
}
