package pptx

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/beevik/etree"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrInvalidPackage = errors.Base("无效的PPTX文件")
	ErrClosed         = errors.Base("演示文稿已关闭")
	ErrEmptyPicture   = errors.Base("图片数据为空")
	ErrShapeNotFound  = errors.Base("形状不在当前幻灯片中")
)

// part 待写出的部件内容
type part interface {
	content() ([]byte, error)
}

type blobPart []byte

func (b blobPart) content() ([]byte, error) {
	return b, nil
}

type xmlPart struct {
	doc *etree.Document
}

func (x xmlPart) content() ([]byte, error) {
	return x.doc.WriteToBytes()
}

// Presentation 基于ZIP文件结构的可编辑PPTX演示文稿
//
// 未修改的部件在写出时按原始压缩数据复制，修改过的部件重新序列化。
// 使用完毕后必须调用 Close。
type Presentation struct {
	reader *zip.Reader
	closer io.Closer
	files  map[string]*zip.File

	pending map[string]part
	added   []string

	slides       []*Slide
	contentTypes *etree.Document
	rootRels     *Relationships
	relatedParts map[string]*relatedPart
	media        map[string]*PictureData

	closed bool
}

// Open 打开磁盘上的PPTX文件，文件句柄在 Close 时释放
func Open(filePath string) (*Presentation, error) {
	rc, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, errors.Errorf("%w: 打开 %s 失败: %v", ErrInvalidPackage, filePath, err)
	}
	p, err := newPresentation(&rc.Reader, rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return p, nil
}

// OpenBytes 从内存中的字节打开PPTX
func OpenBytes(data []byte) (*Presentation, error) {
	return OpenReader(bytes.NewReader(data), int64(len(data)))
}

// OpenReader 从 io.ReaderAt 打开PPTX
func OpenReader(r io.ReaderAt, size int64) (*Presentation, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Errorf("%w: %v", ErrInvalidPackage, err)
	}
	return newPresentation(zr, nil)
}

func newPresentation(zr *zip.Reader, closer io.Closer) (*Presentation, error) {
	p := &Presentation{
		reader:       zr,
		closer:       closer,
		files:        make(map[string]*zip.File, len(zr.File)),
		pending:      make(map[string]part),
		relatedParts: make(map[string]*relatedPart),
	}
	for _, f := range zr.File {
		p.files[f.Name] = f
	}
	if err := p.loadSlides(); err != nil {
		return nil, err
	}
	return p, nil
}

// loadSlides 按 presentation.xml 中 sldIdLst 的顺序加载幻灯片
func (p *Presentation) loadSlides() error {
	if _, ok := p.files[presentationPart]; !ok {
		return errors.Errorf("%w: 缺少 %s", ErrInvalidPackage, presentationPart)
	}

	presDoc, err := p.readXML(presentationPart)
	if err != nil {
		return err
	}
	presRels, err := p.readRels(presentationPart)
	if err != nil {
		return err
	}

	root := presDoc.Root()
	if root == nil {
		return errors.Errorf("%w: %s 为空", ErrInvalidPackage, presentationPart)
	}
	sldIDList := root.SelectElement("sldIdLst")
	if sldIDList == nil {
		return nil
	}

	for i, sldID := range sldIDList.SelectElements("sldId") {
		rID := sldID.SelectAttrValue("r:id", "")
		rel, ok := presRels.Get(rID)
		if !ok {
			return errors.Errorf("%w: 幻灯片关系 %q 不存在", ErrInvalidPackage, rID)
		}
		name := presRels.TargetPart(rel)
		doc, err := p.readXML(name)
		if err != nil {
			return err
		}
		p.slides = append(p.slides, &Slide{
			pres:     p,
			number:   i + 1,
			partName: name,
			doc:      doc,
		})
	}
	return nil
}

func (p *Presentation) readPart(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, errors.Errorf("%w: 缺少部件 %s", ErrInvalidPackage, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Errorf("打开部件 %s 失败: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Errorf("读取部件 %s 失败: %w", name, err)
	}
	return data, nil
}

func (p *Presentation) readXML(name string) (*etree.Document, error) {
	data, err := p.readPart(name)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, errors.Errorf("%w: 解析 %s 失败: %v", ErrInvalidPackage, name, err)
	}
	return doc, nil
}

// readRels 读取源部件的关系表，不存在时返回空表
func (p *Presentation) readRels(source string) (*Relationships, error) {
	name := relsPartName(source)
	if _, ok := p.files[name]; !ok {
		return newRelationships(source), nil
	}
	data, err := p.readPart(name)
	if err != nil {
		return nil, err
	}
	rels, err := parseRelationships(source, data)
	if err != nil {
		return nil, errors.Errorf("%w: 解析 %s 失败: %v", ErrInvalidPackage, name, err)
	}
	return rels, nil
}

func (p *Presentation) hasPart(name string) bool {
	if _, ok := p.files[name]; ok {
		return true
	}
	_, ok := p.pending[name]
	return ok
}

// setPart 登记需要在写出时替换或新增的部件
func (p *Presentation) setPart(name string, pt part) {
	if _, original := p.files[name]; !original {
		if _, seen := p.pending[name]; !seen {
			p.added = append(p.added, name)
		}
	}
	p.pending[name] = pt
}

func (p *Presentation) ensureOpen() error {
	if p.closed {
		return ErrClosed
	}
	return nil
}

func (p *Presentation) contentTypesDoc() (*etree.Document, error) {
	if p.contentTypes != nil {
		return p.contentTypes, nil
	}
	doc, err := p.readXML(contentTypesPart)
	if err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, errors.Errorf("%w: %s 为空", ErrInvalidPackage, contentTypesPart)
	}
	p.contentTypes = doc
	return doc, nil
}

// ensureDefaultContentType 确保扩展名在 [Content_Types].xml 中有 Default 登记
func (p *Presentation) ensureDefaultContentType(ext, contentType string) error {
	doc, err := p.contentTypesDoc()
	if err != nil {
		return err
	}
	root := doc.Root()
	for _, d := range root.SelectElements("Default") {
		if strings.EqualFold(d.SelectAttrValue("Extension", ""), ext) {
			return nil
		}
	}

	el := etree.NewElement("Default")
	el.CreateAttr("Extension", ext)
	el.CreateAttr("ContentType", contentType)
	if first := root.SelectElement("Override"); first != nil {
		root.InsertChildAt(first.Index(), el)
	} else {
		root.AddChild(el)
	}
	p.setPart(contentTypesPart, xmlPart{doc: doc})
	return nil
}

// ensureOverrideContentType 确保部件在 [Content_Types].xml 中有 Override 登记
func (p *Presentation) ensureOverrideContentType(partName, contentType string) error {
	doc, err := p.contentTypesDoc()
	if err != nil {
		return err
	}
	root := doc.Root()
	target := "/" + partName
	for _, o := range root.SelectElements("Override") {
		if o.SelectAttrValue("PartName", "") == target {
			return nil
		}
	}
	el := root.CreateElement("Override")
	el.CreateAttr("PartName", target)
	el.CreateAttr("ContentType", contentType)
	p.setPart(contentTypesPart, xmlPart{doc: doc})
	return nil
}

// Slides 按放映顺序返回幻灯片
func (p *Presentation) Slides() []*Slide {
	slides := make([]*Slide, len(p.slides))
	copy(slides, p.slides)
	return slides
}

// IsModified 是否存在待写出的修改
func (p *Presentation) IsModified() bool {
	return len(p.pending) > 0
}

// Write 将演示文稿序列化为PPTX
func (p *Presentation) Write(w io.Writer) error {
	if err := p.ensureOpen(); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	for _, f := range p.reader.File {
		pt, ok := p.pending[f.Name]
		if !ok {
			if err := zw.Copy(f); err != nil {
				return errors.Errorf("复制部件 %s 失败: %w", f.Name, err)
			}
			continue
		}
		header := &zip.FileHeader{
			Name:     f.Name,
			Method:   f.Method,
			Modified: f.Modified,
		}
		if err := writePart(zw, header, pt); err != nil {
			return err
		}
	}

	for _, name := range p.added {
		header := &zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: time.Now(),
		}
		if err := writePart(zw, header, p.pending[name]); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return errors.Errorf("关闭ZIP写入器失败: %w", err)
	}
	return nil
}

func writePart(zw *zip.Writer, header *zip.FileHeader, pt part) error {
	data, err := pt.content()
	if err != nil {
		return errors.Errorf("序列化部件 %s 失败: %w", header.Name, err)
	}
	writer, err := zw.CreateHeader(header)
	if err != nil {
		return errors.Errorf("创建ZIP文件头 %s 失败: %w", header.Name, err)
	}
	if _, err := writer.Write(data); err != nil {
		return errors.Errorf("写入部件 %s 失败: %w", header.Name, err)
	}
	return nil
}

// Bytes 将演示文稿序列化到内存
func (p *Presentation) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close 释放底层文件句柄，可重复调用
func (p *Presentation) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.slides = nil
	p.pending = nil
	p.relatedParts = nil
	p.media = nil

	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
