package pptx

import (
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Relationship 表示 .rels 中的一条关系
type Relationship struct {
	ID         string
	Type       string
	Target     string
	TargetMode string
}

// Relationships 某个部件的关系表
type Relationships struct {
	partName string // .rels 部件自身的路径
	source   string // 关系所属的源部件
	doc      *etree.Document
}

// relsPartName 返回源部件对应的 .rels 路径，例如 ppt/slides/slide1.xml -> ppt/slides/_rels/slide1.xml.rels
func relsPartName(source string) string {
	dir, file := path.Split(source)
	return dir + "_rels/" + file + ".rels"
}

// resolveTarget 将相对 Target 解析为包内绝对路径
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(source), target)
}

// relativeTarget 计算从源部件指向目标部件的相对路径
func relativeTarget(source, target string) string {
	from := strings.Split(path.Dir(source), "/")
	to := strings.Split(target, "/")

	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}

	var parts []string
	for j := i; j < len(from); j++ {
		if from[j] != "" && from[j] != "." {
			parts = append(parts, "..")
		}
	}
	parts = append(parts, to[i:]...)
	return strings.Join(parts, "/")
}

func newRelationships(source string) *Relationships {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", xmlDeclaration)
	root := doc.CreateElement("Relationships")
	root.CreateAttr("xmlns", nsPackageRels)
	return &Relationships{
		partName: relsPartName(source),
		source:   source,
		doc:      doc,
	}
}

func parseRelationships(source string, data []byte) (*Relationships, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return newRelationships(source), nil
	}
	return &Relationships{
		partName: relsPartName(source),
		source:   source,
		doc:      doc,
	}, nil
}

// All 返回全部关系
func (r *Relationships) All() []Relationship {
	var rels []Relationship
	for _, el := range r.doc.Root().SelectElements("Relationship") {
		rels = append(rels, Relationship{
			ID:         el.SelectAttrValue("Id", ""),
			Type:       el.SelectAttrValue("Type", ""),
			Target:     el.SelectAttrValue("Target", ""),
			TargetMode: el.SelectAttrValue("TargetMode", ""),
		})
	}
	return rels
}

// Get 按 ID 查找关系
func (r *Relationships) Get(id string) (Relationship, bool) {
	for _, rel := range r.All() {
		if rel.ID == id {
			return rel, true
		}
	}
	return Relationship{}, false
}

// FirstOfType 返回指定类型的第一条关系
func (r *Relationships) FirstOfType(relType string) (Relationship, bool) {
	for _, rel := range r.All() {
		if rel.Type == relType {
			return rel, true
		}
	}
	return Relationship{}, false
}

// TargetPart 返回关系目标在包内的绝对路径
func (r *Relationships) TargetPart(rel Relationship) string {
	return resolveTarget(r.source, rel.Target)
}

// Add 添加关系并返回新的 rId；若相同类型和目标的关系已存在则复用
func (r *Relationships) Add(relType, target string) string {
	maxID := 0
	for _, rel := range r.All() {
		if rel.Type == relType && rel.Target == target && rel.TargetMode == "" {
			return rel.ID
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(rel.ID, "rId")); err == nil && n > maxID {
			maxID = n
		}
	}

	id := "rId" + strconv.Itoa(maxID+1)
	el := r.doc.Root().CreateElement("Relationship")
	el.CreateAttr("Id", id)
	el.CreateAttr("Type", relType)
	el.CreateAttr("Target", target)
	return id
}

func (r *Relationships) content() ([]byte, error) {
	return r.doc.WriteToBytes()
}
