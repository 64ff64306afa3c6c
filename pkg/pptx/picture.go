package pptx

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"gitlab.com/tozd/go/errors"
)

// PictureType 图片格式，零值为 PNG
type PictureType int

const (
	PictureTypePNG PictureType = iota
	PictureTypeJPEG
	PictureTypeGIF
	PictureTypeBMP
	PictureTypeTIFF
)

// String 返回格式名称
func (t PictureType) String() string {
	switch t {
	case PictureTypeJPEG:
		return "JPEG"
	case PictureTypeGIF:
		return "GIF"
	case PictureTypeBMP:
		return "BMP"
	case PictureTypeTIFF:
		return "TIFF"
	default:
		return "PNG"
	}
}

// Extension 返回媒体部件使用的扩展名
func (t PictureType) Extension() string {
	switch t {
	case PictureTypeJPEG:
		return "jpeg"
	case PictureTypeGIF:
		return "gif"
	case PictureTypeBMP:
		return "bmp"
	case PictureTypeTIFF:
		return "tiff"
	default:
		return "png"
	}
}

// ContentType 返回 [Content_Types].xml 中登记的 MIME 类型
func (t PictureType) ContentType() string {
	return "image/" + t.Extension()
}

// PictureData 已登记到媒体库的图片
type PictureData struct {
	PartName string
	Type     PictureType
	Size     int
	checksum string
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AddPicture 将图片字节登记到 ppt/media，内容相同的图片只保存一份
func (p *Presentation) AddPicture(data []byte, typ PictureType) (*PictureData, error) {
	if err := p.ensureOpen(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyPicture
	}

	if err := p.indexMedia(); err != nil {
		return nil, err
	}

	sum := checksum(data)
	if existing, ok := p.media[sum]; ok {
		return existing, nil
	}

	ext := typ.Extension()
	var partName string
	for n := 1; ; n++ {
		partName = fmt.Sprintf("%simage%d.%s", mediaDir, n, ext)
		if !p.hasPart(partName) {
			break
		}
	}

	if err := p.ensureDefaultContentType(ext, typ.ContentType()); err != nil {
		return nil, err
	}

	p.setPart(partName, blobPart(data))

	pd := &PictureData{
		PartName: partName,
		Type:     typ,
		Size:     len(data),
		checksum: sum,
	}
	p.media[sum] = pd
	return pd, nil
}

// indexMedia 首次登记图片时读取包内已有媒体的校验和
func (p *Presentation) indexMedia() error {
	if p.media != nil {
		return nil
	}
	p.media = make(map[string]*PictureData)

	for _, f := range p.reader.File {
		if !strings.HasPrefix(f.Name, mediaDir) || strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return errors.Errorf("打开媒体文件 %s 失败: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return errors.Errorf("读取媒体文件 %s 失败: %w", f.Name, err)
		}

		sum := checksum(data)
		if _, ok := p.media[sum]; ok {
			continue
		}
		p.media[sum] = &PictureData{
			PartName: f.Name,
			Type:     pictureTypeForExtension(f.Name),
			Size:     len(data),
			checksum: sum,
		}
	}
	return nil
}

func pictureTypeForExtension(name string) PictureType {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return PictureTypeJPEG
	case strings.HasSuffix(lower, ".gif"):
		return PictureTypeGIF
	case strings.HasSuffix(lower, ".bmp"):
		return PictureTypeBMP
	case strings.HasSuffix(lower, ".tif"), strings.HasSuffix(lower, ".tiff"):
		return PictureTypeTIFF
	default:
		return PictureTypePNG
	}
}

// CreatePicture 在幻灯片形状树末尾创建引用 pd 的图片形状
func (s *Slide) CreatePicture(pd *PictureData) (*Shape, error) {
	if err := s.pres.ensureOpen(); err != nil {
		return nil, err
	}
	if pd == nil {
		return nil, ErrEmptyPicture
	}

	tree := s.spTree()
	if tree == nil {
		return nil, errors.Errorf("%w: 幻灯片 %s 缺少 spTree", ErrInvalidPackage, s.partName)
	}

	rels, err := s.relationships()
	if err != nil {
		return nil, err
	}
	relID := rels.Add(RelTypeImage, relativeTarget(s.partName, pd.PartName))
	s.pres.setPart(rels.partName, rels)

	root := s.doc.Root()
	pns := root.Space
	ans := declarePrefix(root, nsDrawingML, "a")
	rns := declarePrefix(root, nsRelationships, "r")

	id := s.nextShapeID()

	pic := etree.NewElement(qualify(pns, "pic"))

	nvPicPr := pic.CreateElement(qualify(pns, "nvPicPr"))
	cNvPr := nvPicPr.CreateElement(qualify(pns, "cNvPr"))
	cNvPr.CreateAttr("id", fmt.Sprint(id))
	cNvPr.CreateAttr("name", fmt.Sprintf("Picture %d", id))
	cNvPicPr := nvPicPr.CreateElement(qualify(pns, "cNvPicPr"))
	locks := cNvPicPr.CreateElement(qualify(ans, "picLocks"))
	locks.CreateAttr("noChangeAspect", "1")
	nvPicPr.CreateElement(qualify(pns, "nvPr"))

	blipFill := pic.CreateElement(qualify(pns, "blipFill"))
	blip := blipFill.CreateElement(qualify(ans, "blip"))
	blip.CreateAttr(qualify(rns, "embed"), relID)
	stretch := blipFill.CreateElement(qualify(ans, "stretch"))
	stretch.CreateElement(qualify(ans, "fillRect"))

	spPr := pic.CreateElement(qualify(pns, "spPr"))
	xfrm := spPr.CreateElement(qualify(ans, "xfrm"))
	off := xfrm.CreateElement(qualify(ans, "off"))
	off.CreateAttr("x", "0")
	off.CreateAttr("y", "0")
	ext := xfrm.CreateElement(qualify(ans, "ext"))
	ext.CreateAttr("cx", "0")
	ext.CreateAttr("cy", "0")
	geom := spPr.CreateElement(qualify(ans, "prstGeom"))
	geom.CreateAttr("prst", "rect")
	geom.CreateElement(qualify(ans, "avLst"))

	// extLst 必须保持在形状树的最后
	if extLst := tree.SelectElement("extLst"); extLst != nil {
		tree.InsertChildAt(extLst.Index(), pic)
	} else {
		tree.AddChild(pic)
	}

	s.markDirty()
	return &Shape{slide: s, el: pic}, nil
}

// declarePrefix 返回命名空间在根元素上声明的前缀，未声明时以 preferred 声明
func declarePrefix(root *etree.Element, ns, preferred string) string {
	for _, attr := range root.Attr {
		if attr.Space == "xmlns" && attr.Value == ns {
			return attr.Key
		}
	}
	root.CreateAttr("xmlns:"+preferred, ns)
	return preferred
}

func qualify(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}
