package pptx

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// ShapeKind 形状种类
type ShapeKind int

const (
	ShapeKindOther ShapeKind = iota
	ShapeKindAuto            // p:sp，可承载文本
	ShapeKindPicture         // p:pic
	ShapeKindGroup           // p:grpSp
	ShapeKindGraphicFrame    // p:graphicFrame（表格、图表）
	ShapeKindConnector       // p:cxnSp
)

func shapeKindOf(el *etree.Element) (ShapeKind, bool) {
	switch el.Tag {
	case "sp":
		return ShapeKindAuto, true
	case "pic":
		return ShapeKindPicture, true
	case "grpSp":
		return ShapeKindGroup, true
	case "graphicFrame":
		return ShapeKindGraphicFrame, true
	case "cxnSp":
		return ShapeKindConnector, true
	case "contentPart":
		return ShapeKindOther, true
	default:
		return ShapeKindOther, false
	}
}

// Anchor 形状在幻灯片上的位置和尺寸（EMU）
type Anchor struct {
	X      int64
	Y      int64
	Width  int64
	Height int64
}

// Shape 幻灯片形状树中的一个顶层形状
type Shape struct {
	slide *Slide
	el    *etree.Element
}

// Slide 返回形状所在的幻灯片
func (sh *Shape) Slide() *Slide {
	return sh.slide
}

// Kind 返回形状种类
func (sh *Shape) Kind() ShapeKind {
	kind, _ := shapeKindOf(sh.el)
	return kind
}

// IsTextShape 是否为文本形状（自选图形和文本框）
func (sh *Shape) IsTextShape() bool {
	return sh.Kind() == ShapeKindAuto
}

// nvProps 返回 cNvPr 元素
func (sh *Shape) nvProps() *etree.Element {
	for _, child := range sh.el.ChildElements() {
		if strings.HasPrefix(child.Tag, "nv") {
			return child.SelectElement("cNvPr")
		}
	}
	return nil
}

// ID 返回形状 ID
func (sh *Shape) ID() int {
	if c := sh.nvProps(); c != nil {
		id, _ := strconv.Atoi(c.SelectAttrValue("id", "0"))
		return id
	}
	return 0
}

// Name 返回形状名称
func (sh *Shape) Name() string {
	if c := sh.nvProps(); c != nil {
		return c.SelectAttrValue("name", "")
	}
	return ""
}

// placeholder 返回 p:nvPr/p:ph 元素
func (sh *Shape) placeholder() *etree.Element {
	for _, child := range sh.el.ChildElements() {
		if strings.HasPrefix(child.Tag, "nv") {
			if nvPr := child.SelectElement("nvPr"); nvPr != nil {
				return nvPr.SelectElement("ph")
			}
		}
	}
	return nil
}

// EmbedID 返回图片形状引用的媒体关系 ID
func (sh *Shape) EmbedID() string {
	blipFill := sh.el.SelectElement("blipFill")
	if blipFill == nil {
		return ""
	}
	blip := blipFill.SelectElement("blip")
	if blip == nil {
		return ""
	}
	return blip.SelectAttrValue("r:embed", "")
}

// Paragraphs 返回文本段落，非文本形状返回 nil
func (sh *Shape) Paragraphs() []*Paragraph {
	body := sh.el.SelectElement("txBody")
	if body == nil {
		return nil
	}
	var paragraphs []*Paragraph
	for _, p := range body.SelectElements("p") {
		paragraphs = append(paragraphs, &Paragraph{slide: sh.slide, el: p})
	}
	return paragraphs
}

// Text 返回形状可见文本，段落之间以换行分隔
func (sh *Shape) Text() string {
	paragraphs := sh.Paragraphs()
	texts := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		texts = append(texts, p.Text())
	}
	return strings.Join(texts, "\n")
}

// xfrm 返回形状自身的变换元素
func xfrmOf(el *etree.Element) *etree.Element {
	switch el.Tag {
	case "graphicFrame":
		return el.SelectElement("xfrm")
	case "grpSp":
		if pr := el.SelectElement("grpSpPr"); pr != nil {
			return pr.SelectElement("xfrm")
		}
	default:
		if pr := el.SelectElement("spPr"); pr != nil {
			return pr.SelectElement("xfrm")
		}
	}
	return nil
}

func parseAnchor(xfrm *etree.Element) (Anchor, bool) {
	if xfrm == nil {
		return Anchor{}, false
	}
	off := xfrm.SelectElement("off")
	ext := xfrm.SelectElement("ext")
	if off == nil || ext == nil {
		return Anchor{}, false
	}
	var a Anchor
	a.X, _ = strconv.ParseInt(off.SelectAttrValue("x", "0"), 10, 64)
	a.Y, _ = strconv.ParseInt(off.SelectAttrValue("y", "0"), 10, 64)
	a.Width, _ = strconv.ParseInt(ext.SelectAttrValue("cx", "0"), 10, 64)
	a.Height, _ = strconv.ParseInt(ext.SelectAttrValue("cy", "0"), 10, 64)
	return a, true
}

// Anchor 返回形状自身声明的位置
func (sh *Shape) Anchor() (Anchor, bool) {
	return parseAnchor(xfrmOf(sh.el))
}

// ResolveAnchor 返回形状的有效位置；占位符没有声明位置时从版式、母版继承
func (sh *Shape) ResolveAnchor() (Anchor, bool) {
	if a, ok := sh.Anchor(); ok {
		return a, true
	}
	ph := sh.placeholder()
	if ph == nil {
		return Anchor{}, false
	}
	return sh.slide.inheritedAnchor(ph)
}

// SetAnchor 设置形状位置，缺少 xfrm 时创建
func (sh *Shape) SetAnchor(a Anchor) {
	xfrm := xfrmOf(sh.el)
	if xfrm == nil {
		ns := sh.el.Space
		ans := declarePrefix(sh.slide.doc.Root(), nsDrawingML, "a")
		spPr := sh.el.SelectElement("spPr")
		if spPr == nil {
			spPr = sh.el.CreateElement(qualify(ns, "spPr"))
		}
		xfrm = etree.NewElement(qualify(ans, "xfrm"))
		spPr.InsertChildAt(0, xfrm)
	}

	off := xfrm.SelectElement("off")
	if off == nil {
		off = etree.NewElement(qualify(xfrm.Space, "off"))
		xfrm.InsertChildAt(0, off)
	}
	ext := xfrm.SelectElement("ext")
	if ext == nil {
		ext = xfrm.CreateElement(qualify(xfrm.Space, "ext"))
	}
	off.CreateAttr("x", strconv.FormatInt(a.X, 10))
	off.CreateAttr("y", strconv.FormatInt(a.Y, 10))
	ext.CreateAttr("cx", strconv.FormatInt(a.Width, 10))
	ext.CreateAttr("cy", strconv.FormatInt(a.Height, 10))

	sh.slide.markDirty()
}

// Paragraph 文本段落
type Paragraph struct {
	slide *Slide
	el    *etree.Element
}

// Runs 返回段落中可编辑的文本片段（a:r 与 a:fld）
func (p *Paragraph) Runs() []*Run {
	var runs []*Run
	for _, child := range p.el.ChildElements() {
		if child.Tag == "r" || child.Tag == "fld" {
			runs = append(runs, &Run{slide: p.slide, el: child})
		}
	}
	return runs
}

// Text 返回段落文本，a:br 计为换行
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, child := range p.el.ChildElements() {
		switch child.Tag {
		case "r", "fld":
			if t := child.SelectElement("t"); t != nil {
				sb.WriteString(t.Text())
			}
		case "br":
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// Run 最小的带样式文本片段
type Run struct {
	slide *Slide
	el    *etree.Element
}

// RawText 返回片段原始文本
func (r *Run) RawText() string {
	if t := r.el.SelectElement("t"); t != nil {
		return t.Text()
	}
	return ""
}

// SetText 改写片段文本，保留 a:rPr 等样式
func (r *Run) SetText(text string) {
	t := r.el.SelectElement("t")
	if t == nil {
		t = r.el.CreateElement(qualify(r.el.Space, "t"))
	}
	t.SetText(text)
	r.slide.markDirty()
}
