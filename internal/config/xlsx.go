package config

import (
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gitlab.com/tozd/go/errors"

	"github.com/allanpk716/pptx_replacer/internal/domain"
)

// xlsx 列顺序
const (
	colKey = iota
	colType
	colValue
	colImagePath
	colContentType
)

// LoadXLSX 从表格读取占位符，列顺序为 key | type | value | image_path | content_type
//
// sheet 为空时读取第一个工作表；首行 key 列为 "key" 时视为表头。
// 图片路径相对表格所在目录解析。
func LoadXLSX(path, sheet string) ([]PlaceholderEntry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Errorf("打开数据表失败: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.Errorf("数据表 %s 没有工作表", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Errorf("读取工作表 %s 失败: %w", sheet, err)
	}

	dir := filepath.Dir(path)
	var entries []PlaceholderEntry
	for i, row := range rows {
		cell := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}

		key := cell(colKey)
		if key == "" {
			continue
		}
		if i == 0 && strings.EqualFold(key, "key") {
			continue
		}

		entry := PlaceholderEntry{
			Key:         key,
			Type:        string(domain.ParsePlaceholderType(cell(colType))),
			ImagePath:   cell(colImagePath),
			ContentType: cell(colContentType),
		}
		if entry.Type == string(domain.TypeImage) {
			if entry.ImagePath != "" && !filepath.IsAbs(entry.ImagePath) {
				entry.ImagePath = filepath.Join(dir, entry.ImagePath)
			}
		} else {
			entry.Value = cell(colValue)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
