// Package testutil 构造测试用的最小 PPTX 与 DOCX 文件
package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// Rect 形状位置（EMU）
type Rect struct {
	X, Y, Width, Height int64
}

var (
	// LayoutTitleRect 版式中标题占位符的位置
	LayoutTitleRect = Rect{X: 457200, Y: 274638, Width: 8229600, Height: 1143000}
	// MasterBodyRect 母版中正文占位符的位置，版式中的正文占位符不声明位置
	MasterBodyRect = Rect{X: 457200, Y: 1600200, Width: 8229600, Height: 4525963}
)

// Shape 幻灯片中的一个形状
type Shape struct {
	ID   int
	Name string

	// Paragraphs 每个段落由若干文本片段组成
	Paragraphs [][]string
	Rect       *Rect

	PlaceholderType string
	PlaceholderIdx  string

	// PictureRel 非空时生成引用该关系的图片形状
	PictureRel string
}

// TextBox 带位置的文本框
func TextBox(id int, rect Rect, paragraphs ...[]string) Shape {
	return Shape{ID: id, Name: fmt.Sprintf("TextBox %d", id), Paragraphs: paragraphs, Rect: &rect}
}

// Placeholder 不声明位置的占位符
func Placeholder(id int, phType, idx string, paragraphs ...[]string) Shape {
	return Shape{
		ID:              id,
		Name:            fmt.Sprintf("Placeholder %d", id),
		Paragraphs:      paragraphs,
		PlaceholderType: phType,
		PlaceholderIdx:  idx,
	}
}

// Runs 单个段落的文本片段
func Runs(texts ...string) []string {
	return texts
}

// Slide 一张幻灯片
type Slide struct {
	Shapes []Shape
	// Media 幻灯片关系中引用的媒体，关系ID -> ppt/media 下的文件名
	Media  map[string]string
	ExtLst bool
}

// Deck 整个演示文稿
type Deck struct {
	Slides []Slide
	// Media ppt/media 下的文件内容
	Media map[string][]byte
}

// Bytes 生成PPTX字节
func (d Deck) Bytes(tb testing.TB) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range d.parts() {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.name, Method: zip.Deflate})
		require.NoError(tb, err)
		_, err = w.Write(f.data)
		require.NoError(tb, err)
	}
	require.NoError(tb, zw.Close())
	return buf.Bytes()
}

// WriteFile 将PPTX写入 dir/name 并返回路径
func (d Deck) WriteFile(tb testing.TB, dir, name string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(tb, os.WriteFile(path, d.Bytes(tb), 0644))
	return path
}

// SimpleDeck 每个字符串生成一张只含一个文本框的幻灯片
func SimpleDeck(texts ...string) Deck {
	var d Deck
	for _, text := range texts {
		d.Slides = append(d.Slides, Slide{
			Shapes: []Shape{TextBox(2, Rect{X: 100, Y: 200, Width: 300, Height: 400}, Runs(text))},
		})
	}
	return d
}

type file struct {
	name string
	data []byte
}

func (d Deck) parts() []file {
	var files []file
	add := func(name, content string) {
		files = append(files, file{name: name, data: []byte(content)})
	}

	add("[Content_Types].xml", d.contentTypes())
	add("_rels/.rels", rels(map[string][2]string{
		"rId1": {"http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument", "ppt/presentation.xml"},
	}))
	add("ppt/presentation.xml", d.presentation())

	presRels := map[string][2]string{
		"rId1": {nsR + "/slideMaster", "slideMasters/slideMaster1.xml"},
	}
	for i := range d.Slides {
		presRels[fmt.Sprintf("rId%d", i+2)] = [2]string{nsR + "/slide", fmt.Sprintf("slides/slide%d.xml", i+1)}
	}
	add("ppt/_rels/presentation.xml.rels", rels(presRels))

	for i, s := range d.Slides {
		add(fmt.Sprintf("ppt/slides/slide%d.xml", i+1), s.xml())
		slideRels := map[string][2]string{
			"rId1": {nsR + "/slideLayout", "../slideLayouts/slideLayout1.xml"},
		}
		for id, media := range s.Media {
			slideRels[id] = [2]string{nsR + "/image", "../media/" + media}
		}
		add(fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i+1), rels(slideRels))
	}

	add("ppt/slideLayouts/slideLayout1.xml", layoutXML)
	add("ppt/slideLayouts/_rels/slideLayout1.xml.rels", rels(map[string][2]string{
		"rId1": {nsR + "/slideMaster", "../slideMasters/slideMaster1.xml"},
	}))
	add("ppt/slideMasters/slideMaster1.xml", masterXML)
	add("ppt/slideMasters/_rels/slideMaster1.xml.rels", rels(map[string][2]string{
		"rId1": {nsR + "/slideLayout", "../slideLayouts/slideLayout1.xml"},
	}))

	names := make([]string, 0, len(d.Media))
	for name := range d.Media {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		files = append(files, file{name: "ppt/media/" + name, data: d.Media[name]})
	}
	return files
}

func (d Deck) contentTypes() string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	sb.WriteString(`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>`)
	sb.WriteString(`<Default Extension="xml" ContentType="application/xml"/>`)
	if len(d.Media) > 0 {
		sb.WriteString(`<Default Extension="png" ContentType="image/png"/>`)
	}
	sb.WriteString(`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>`)
	for i := range d.Slides {
		fmt.Fprintf(&sb, `<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i+1)
	}
	sb.WriteString(`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>`)
	sb.WriteString(`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>`)
	sb.WriteString(`</Types>`)
	return sb.String()
}

func (d Deck) presentation() string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	fmt.Fprintf(&sb, `<p:presentation xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">`, nsA, nsR, nsP)
	sb.WriteString(`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>`)
	if len(d.Slides) > 0 {
		sb.WriteString(`<p:sldIdLst>`)
		for i := range d.Slides {
			fmt.Fprintf(&sb, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, i+2)
		}
		sb.WriteString(`</p:sldIdLst>`)
	}
	sb.WriteString(`<p:sldSz cx="9144000" cy="6858000"/><p:notesSz cx="6858000" cy="9144000"/>`)
	sb.WriteString(`</p:presentation>`)
	return sb.String()
}

func (s Slide) xml() string {
	var sb strings.Builder
	sb.WriteString(xmlHeader)
	fmt.Fprintf(&sb, `<p:sld xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">`, nsA, nsR, nsP)
	sb.WriteString(`<p:cSld><p:spTree>`)
	sb.WriteString(`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>`)
	sb.WriteString(`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`)
	for _, sh := range s.Shapes {
		sb.WriteString(sh.xml())
	}
	if s.ExtLst {
		sb.WriteString(`<p:extLst><p:ext uri="{BB962C8B-B14F-4D97-AF65-F5344CB8AC3E}"/></p:extLst>`)
	}
	sb.WriteString(`</p:spTree></p:cSld>`)
	sb.WriteString(`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>`)
	sb.WriteString(`</p:sld>`)
	return sb.String()
}

func (sh Shape) xml() string {
	var sb strings.Builder
	if sh.PictureRel != "" {
		fmt.Fprintf(&sb, `<p:pic><p:nvPicPr><p:cNvPr id="%d" name="%s"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`, sh.ID, escape(sh.Name))
		fmt.Fprintf(&sb, `<p:blipFill><a:blip r:embed="%s"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>`, sh.PictureRel)
		sb.WriteString(`<p:spPr>`)
		writeRect(&sb, sh.Rect)
		sb.WriteString(`<a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>`)
		return sb.String()
	}

	fmt.Fprintf(&sb, `<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr>`, sh.ID, escape(sh.Name))
	if sh.PlaceholderType != "" || sh.PlaceholderIdx != "" {
		sb.WriteString(`<p:ph`)
		if sh.PlaceholderType != "" {
			fmt.Fprintf(&sb, ` type="%s"`, sh.PlaceholderType)
		}
		if sh.PlaceholderIdx != "" {
			fmt.Fprintf(&sb, ` idx="%s"`, sh.PlaceholderIdx)
		}
		sb.WriteString(`/>`)
	}
	sb.WriteString(`</p:nvPr></p:nvSpPr><p:spPr>`)
	writeRect(&sb, sh.Rect)
	sb.WriteString(`</p:spPr><p:txBody><a:bodyPr/><a:lstStyle/>`)
	for _, runs := range sh.Paragraphs {
		sb.WriteString(`<a:p>`)
		for _, text := range runs {
			if text == "\n" {
				sb.WriteString(`<a:br/>`)
				continue
			}
			fmt.Fprintf(&sb, `<a:r><a:rPr lang="en-US" b="1"/><a:t>%s</a:t></a:r>`, escape(text))
		}
		sb.WriteString(`</a:p>`)
	}
	sb.WriteString(`</p:txBody></p:sp>`)
	return sb.String()
}

func writeRect(sb *strings.Builder, r *Rect) {
	if r == nil {
		return
	}
	fmt.Fprintf(sb, `<a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`, r.X, r.Y, r.Width, r.Height)
}

func rels(entries map[string][2]string) string {
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	sb.WriteString(xmlHeader)
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, id := range ids {
		fmt.Fprintf(&sb, `<Relationship Id="%s" Type="%s" Target="%s"/>`, id, entries[id][0], entries[id][1])
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string {
	return escaper.Replace(s)
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

var layoutXML = xmlHeader + `<p:sldLayout xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `" type="obj">` +
	`<p:cSld name="Title and Content"><p:spTree>` +
	`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
	fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title 1"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm></p:spPr><p:txBody><a:bodyPr/><a:lstStyle/><a:p/></p:txBody></p:sp>`,
		LayoutTitleRect.X, LayoutTitleRect.Y, LayoutTitleRect.Width, LayoutTitleRect.Height) +
	`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Content Placeholder 2"/><p:cNvSpPr/><p:nvPr><p:ph idx="1"/></p:nvPr></p:nvSpPr>` +
	`<p:spPr/><p:txBody><a:bodyPr/><a:lstStyle/><a:p/></p:txBody></p:sp>` +
	`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`

var masterXML = xmlHeader + `<p:sldMaster xmlns:a="` + nsA + `" xmlns:r="` + nsR + `" xmlns:p="` + nsP + `">` +
	`<p:cSld><p:spTree>` +
	`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
	`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Title Placeholder 1"/><p:cNvSpPr/><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>` +
	`<p:spPr><a:xfrm><a:off x="1" y="1"/><a:ext cx="1" cy="1"/></a:xfrm></p:spPr><p:txBody><a:bodyPr/><a:lstStyle/><a:p/></p:txBody></p:sp>` +
	fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Text Placeholder 2"/><p:cNvSpPr/><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm></p:spPr><p:txBody><a:bodyPr/><a:lstStyle/><a:p/></p:txBody></p:sp>`,
		MasterBodyRect.X, MasterBodyRect.Y, MasterBodyRect.Width, MasterBodyRect.Height) +
	`</p:spTree></p:cSld>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`</p:sldMaster>`

// PNG 1x1 透明PNG
var PNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// JPEG 最小JPEG文件头，仅用于内容区分
var JPEG = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01, 0xff, 0xd9}
