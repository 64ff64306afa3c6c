package pptx

import (
	"strconv"

	"github.com/beevik/etree"
)

// customProperties 返回 docProps/custom.xml 文档；create 为 true 时缺失则新建
func (p *Presentation) customProperties(create bool) (*etree.Document, error) {
	if pt, ok := p.pending[customPropsPart]; ok {
		if x, ok := pt.(xmlPart); ok {
			return x.doc, nil
		}
	}
	if _, ok := p.files[customPropsPart]; ok {
		return p.readXML(customPropsPart)
	}
	if !create {
		return nil, nil
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", xmlDeclaration)
	root := doc.CreateElement("Properties")
	root.CreateAttr("xmlns", nsCustomProps)
	root.CreateAttr("xmlns:vt", nsDocPropsVTypes)

	if err := p.ensureOverrideContentType(customPropsPart, customPropsType); err != nil {
		return nil, err
	}
	if p.rootRels == nil {
		rels, err := p.readRels("")
		if err != nil {
			return nil, err
		}
		p.rootRels = rels
	}
	p.rootRels.Add(RelTypeCustomProperties, customPropsPart)
	p.setPart(rootRelsPart, p.rootRels)
	return doc, nil
}

// CustomProperty 读取字符串类型的自定义文档属性
func (p *Presentation) CustomProperty(name string) (string, bool, error) {
	if err := p.ensureOpen(); err != nil {
		return "", false, err
	}
	doc, err := p.customProperties(false)
	if err != nil || doc == nil || doc.Root() == nil {
		return "", false, err
	}
	for _, prop := range doc.Root().SelectElements("property") {
		if prop.SelectAttrValue("name", "") != name {
			continue
		}
		if v := prop.SelectElement("lpwstr"); v != nil {
			return v.Text(), true, nil
		}
		return "", true, nil
	}
	return "", false, nil
}

// SetCustomProperty 写入字符串类型的自定义文档属性，同名属性会被覆盖
func (p *Presentation) SetCustomProperty(name, value string) error {
	if err := p.ensureOpen(); err != nil {
		return err
	}
	doc, err := p.customProperties(true)
	if err != nil {
		return err
	}
	root := doc.Root()
	vt := declarePrefix(root, nsDocPropsVTypes, "vt")

	maxPID := 1
	for _, prop := range root.SelectElements("property") {
		if prop.SelectAttrValue("name", "") == name {
			for _, child := range prop.ChildElements() {
				prop.RemoveChild(child)
			}
			prop.CreateElement(qualify(vt, "lpwstr")).SetText(value)
			p.setPart(customPropsPart, xmlPart{doc: doc})
			return nil
		}
		if pid, err := strconv.Atoi(prop.SelectAttrValue("pid", "")); err == nil && pid > maxPID {
			maxPID = pid
		}
	}

	prop := root.CreateElement(qualify(root.Space, "property"))
	prop.CreateAttr("fmtid", customPropsFmtID)
	prop.CreateAttr("pid", strconv.Itoa(maxPID+1))
	prop.CreateAttr("name", name)
	prop.CreateElement(qualify(vt, "lpwstr")).SetText(value)

	p.setPart(customPropsPart, xmlPart{doc: doc})
	return nil
}
