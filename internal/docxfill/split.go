package docxfill

import (
	"html"
	"regexp"
	"strings"
)

// tagGap 字符之间可能出现的 run 边界
const tagGap = `(?:<[^>]*>)*`

// splitPattern 匹配被 XML 标签拆开的标记，例如 {<w:r>...{title}} 或 $na<w:r>...me
func splitPattern(marker string) *regexp.Regexp {
	if len([]rune(marker)) < 2 {
		return nil
	}

	var sb strings.Builder
	for i, ch := range []rune(marker) {
		if i > 0 {
			sb.WriteString(tagGap)
		}
		sb.WriteString(regexp.QuoteMeta(html.EscapeString(string(ch))))
	}
	pattern, err := regexp.Compile(sb.String())
	if err != nil {
		return nil
	}
	return pattern
}

// mergeSplitMarkers 将段落内被拆到多个 run 的标记合并回第一个 run
//
// 标记之间的标签被整体移除，只在单个段落内匹配，不会跨段落合并。
func mergeSplitMarkers(content string, markers []string) string {
	type merge struct {
		pattern *regexp.Regexp
		marker  string
	}
	var patterns []merge
	for _, marker := range markers {
		if p := splitPattern(marker); p != nil {
			patterns = append(patterns, merge{pattern: p, marker: html.EscapeString(marker)})
		}
	}
	if len(patterns) == 0 {
		return content
	}

	paragraphs := strings.SplitAfter(content, "</w:p>")
	for i, p := range paragraphs {
		if !xmlTag.MatchString(p) {
			continue
		}
		for _, m := range patterns {
			paragraphs[i] = m.pattern.ReplaceAllLiteralString(paragraphs[i], m.marker)
		}
	}
	return strings.Join(paragraphs, "")
}
