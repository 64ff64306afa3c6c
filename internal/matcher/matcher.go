package matcher

import (
	"iter"
	"strings"
)

const (
	OpenDelimiter  = "{{"
	CloseDelimiter = "}}"
	Sigil          = "$"
)

// Markers 按出现顺序返回文本中 {{key}} 的键（去除首尾空白）
//
// 未闭合的 {{ 终止该文本的扫描；{{}} 与 {{ }} 产生空键。
func Markers(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		pos := 0
		for {
			start := strings.Index(text[pos:], OpenDelimiter)
			if start < 0 {
				return
			}
			start += pos + len(OpenDelimiter)

			end := strings.Index(text[start:], CloseDelimiter)
			if end < 0 {
				return
			}
			end += start

			key := strings.TrimSpace(text[start:end])
			pos = end + len(CloseDelimiter)
			if !yield(key) {
				return
			}
		}
	}
}

// ScanKeys 扫描多个文本容器，返回去重后的键，保持首次出现的顺序
func ScanKeys(texts iter.Seq[string]) []string {
	seen := make(map[string]struct{})
	var keys []string
	for text := range texts {
		for key := range Markers(text) {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

// FormatDelimited 将键格式化为 {{key}}
func FormatDelimited(key string) string {
	return OpenDelimiter + key + CloseDelimiter
}

// FormatSigil 将键格式化为 $key
func FormatSigil(key string) string {
	return Sigil + key
}

// IsDelimited 判断字符串是否为完整的 {{key}} 标记
func IsDelimited(marker string) bool {
	return len(marker) > len(OpenDelimiter)+len(CloseDelimiter) &&
		strings.HasPrefix(marker, OpenDelimiter) &&
		strings.HasSuffix(marker, CloseDelimiter)
}

// KeyOf 从 {{key}} 中提取键，非标记原样返回
func KeyOf(marker string) string {
	if !IsDelimited(marker) {
		return marker
	}
	return strings.TrimSpace(marker[len(OpenDelimiter) : len(marker)-len(CloseDelimiter)])
}

// ReplaceAll 字面替换 text 中全部 marker，返回新文本和替换次数
//
// 不做词边界判断：$total 也会匹配 $total_tax 的前缀。
func ReplaceAll(text, marker, value string) (string, int) {
	if marker == "" {
		return text, 0
	}
	count := strings.Count(text, marker)
	if count == 0 {
		return text, 0
	}
	return strings.ReplaceAll(text, marker, value), count
}
