package pptx

// OOXML 命名空间
const (
	nsPresentationML = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawingML      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsRelationships  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPackageRels    = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsCustomProps    = "http://schemas.openxmlformats.org/officeDocument/2006/custom-properties"
	nsDocPropsVTypes = "http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes"
)

// 关系类型
const (
	RelTypeSlide            = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"
	RelTypeSlideLayout      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideLayout"
	RelTypeSlideMaster      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slideMaster"
	RelTypeImage            = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/image"
	RelTypeCustomProperties = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/custom-properties"
)

// 包内固定部件
const (
	contentTypesPart     = "[Content_Types].xml"
	rootRelsPart         = "_rels/.rels"
	presentationPart     = "ppt/presentation.xml"
	customPropsPart      = "docProps/custom.xml"
	customPropsType      = "application/vnd.openxmlformats-officedocument.custom-properties+xml"
	customPropsFmtID     = "{D5CDD505-2E9C-101B-9397-08002B2CF9AE}"
	mediaDir             = "ppt/media/"
	xmlDeclaration       = `version="1.0" encoding="UTF-8" standalone="yes"`
	PresentationMimeType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)
