package pptx

import (
	"strconv"

	"github.com/beevik/etree"
)

// Slide 一张幻灯片
type Slide struct {
	pres     *Presentation
	number   int
	partName string
	doc      *etree.Document
	rels     *Relationships
}

// Number 返回幻灯片序号（从 1 开始）
func (s *Slide) Number() int {
	return s.number
}

// PartName 返回幻灯片在包内的路径
func (s *Slide) PartName() string {
	return s.partName
}

func (s *Slide) spTree() *etree.Element {
	root := s.doc.Root()
	if root == nil {
		return nil
	}
	cSld := root.SelectElement("cSld")
	if cSld == nil {
		return nil
	}
	return cSld.SelectElement("spTree")
}

// Shapes 按文档顺序返回顶层形状
func (s *Slide) Shapes() []*Shape {
	tree := s.spTree()
	if tree == nil {
		return nil
	}
	var shapes []*Shape
	for _, el := range tree.ChildElements() {
		if _, ok := shapeKindOf(el); ok {
			shapes = append(shapes, &Shape{slide: s, el: el})
		}
	}
	return shapes
}

// TextShapes 返回可承载文本的顶层形状
func (s *Slide) TextShapes() []*Shape {
	var shapes []*Shape
	for _, sh := range s.Shapes() {
		if sh.IsTextShape() {
			shapes = append(shapes, sh)
		}
	}
	return shapes
}

// RemoveShape 从形状树中移除形状
func (s *Slide) RemoveShape(sh *Shape) error {
	if err := s.pres.ensureOpen(); err != nil {
		return err
	}
	if sh == nil || sh.slide != s || sh.el.Parent() == nil {
		return ErrShapeNotFound
	}
	if sh.el.Parent().RemoveChild(sh.el) == nil {
		return ErrShapeNotFound
	}
	s.markDirty()
	return nil
}

func (s *Slide) relationships() (*Relationships, error) {
	if s.rels != nil {
		return s.rels, nil
	}
	rels, err := s.pres.readRels(s.partName)
	if err != nil {
		return nil, err
	}
	s.rels = rels
	return rels, nil
}

// nextShapeID 返回幻灯片内未使用的形状 ID
func (s *Slide) nextShapeID() int {
	maxID := 1
	tree := s.spTree()
	if tree == nil {
		return maxID + 1
	}
	for _, c := range tree.FindElements(".//cNvPr") {
		if id, err := strconv.Atoi(c.SelectAttrValue("id", "")); err == nil && id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}

func (s *Slide) markDirty() {
	s.pres.setPart(s.partName, xmlPart{doc: s.doc})
}

// inheritedAnchor 沿 版式 -> 母版 查找同一占位符的位置
func (s *Slide) inheritedAnchor(ph *etree.Element) (Anchor, bool) {
	rels, err := s.relationships()
	if err != nil {
		return Anchor{}, false
	}
	layoutRel, ok := rels.FirstOfType(RelTypeSlideLayout)
	if !ok {
		return Anchor{}, false
	}
	layout, err := s.pres.related(rels.TargetPart(layoutRel))
	if err != nil {
		return Anchor{}, false
	}
	if el := findPlaceholder(layout.doc, ph, true); el != nil {
		if a, ok := parseAnchor(xfrmOf(el)); ok {
			return a, true
		}
	}

	masterRel, ok := layout.rels.FirstOfType(RelTypeSlideMaster)
	if !ok {
		return Anchor{}, false
	}
	master, err := s.pres.related(layout.rels.TargetPart(masterRel))
	if err != nil {
		return Anchor{}, false
	}
	if el := findPlaceholder(master.doc, ph, false); el != nil {
		return parseAnchor(xfrmOf(el))
	}
	return Anchor{}, false
}

// normalizePlaceholderType 未声明类型的占位符按 body 处理，ctrTitle 与 title 等价
func normalizePlaceholderType(t string) string {
	switch t {
	case "", "obj":
		return "body"
	case "ctrTitle":
		return "title"
	default:
		return t
	}
}

// findPlaceholder 在版式或母版中查找与 ph 对应的占位符形状，先按 idx 再按类型匹配
func findPlaceholder(doc *etree.Document, ph *etree.Element, byIdx bool) *etree.Element {
	root := doc.Root()
	if root == nil {
		return nil
	}
	cSld := root.SelectElement("cSld")
	if cSld == nil {
		return nil
	}
	tree := cSld.SelectElement("spTree")
	if tree == nil {
		return nil
	}

	idx := ph.SelectAttrValue("idx", "")
	typ := normalizePlaceholderType(ph.SelectAttrValue("type", ""))

	var byType *etree.Element
	for _, el := range tree.ChildElements() {
		if _, ok := shapeKindOf(el); !ok {
			continue
		}
		candidate := (&Shape{el: el}).placeholder()
		if candidate == nil {
			continue
		}
		if byIdx && idx != "" && candidate.SelectAttrValue("idx", "") == idx {
			return el
		}
		if byType == nil && normalizePlaceholderType(candidate.SelectAttrValue("type", "")) == typ {
			byType = el
		}
	}
	return byType
}

// relatedPart 只读加载的版式、母版部件
type relatedPart struct {
	doc  *etree.Document
	rels *Relationships
}

func (p *Presentation) related(name string) (*relatedPart, error) {
	if rp, ok := p.relatedParts[name]; ok {
		return rp, nil
	}
	doc, err := p.readXML(name)
	if err != nil {
		return nil, err
	}
	rels, err := p.readRels(name)
	if err != nil {
		return nil, err
	}
	rp := &relatedPart{doc: doc, rels: rels}
	p.relatedParts[name] = rp
	return rp, nil
}
