package pptx

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/pptx_replacer/internal/testutil"
)

func readParts(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	parts := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		parts[f.Name] = content
	}
	return parts
}

func openDeck(t *testing.T, deck testutil.Deck) *Presentation {
	t.Helper()
	pres, err := OpenBytes(deck.Bytes(t))
	require.NoError(t, err)
	t.Cleanup(func() { pres.Close() })
	return pres
}

func TestOpen_SlidesInPresentationOrder(t *testing.T) {
	pres := openDeck(t, testutil.SimpleDeck("first", "second", "third"))

	slides := pres.Slides()
	require.Len(t, slides, 3)
	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, i+1, slides[i].Number())
		shapes := slides[i].TextShapes()
		require.Len(t, shapes, 1)
		assert.Equal(t, want, shapes[0].Text())
	}
	assert.Equal(t, "ppt/slides/slide2.xml", slides[1].PartName())
}

func TestOpen_InvalidPackage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "not_a_zip", data: []byte("plain text")},
		{name: "zip_without_presentation", data: func() []byte {
			var buf bytes.Buffer
			zw := zip.NewWriter(&buf)
			w, _ := zw.Create("hello.txt")
			w.Write([]byte("hi"))
			zw.Close()
			return buf.Bytes()
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenBytes(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPackage), "unexpected error: %v", err)
		})
	}
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(t.TempDir() + "/missing.pptx")
	assert.ErrorIs(t, err, ErrInvalidPackage)
}

func TestShapeText_ParagraphsAndBreaks(t *testing.T) {
	deck := testutil.Deck{Slides: []testutil.Slide{{
		Shapes: []testutil.Shape{
			testutil.TextBox(2, testutil.Rect{}, testutil.Runs("Hello ", "{{name}}"), testutil.Runs("line", "\n", "two")),
		},
	}}}
	pres := openDeck(t, deck)

	sh := pres.Slides()[0].TextShapes()[0]
	assert.Equal(t, "Hello {{name}}\nline\ntwo", sh.Text())
	assert.Equal(t, 2, sh.ID())
	assert.Equal(t, "TextBox 2", sh.Name())

	paragraphs := sh.Paragraphs()
	require.Len(t, paragraphs, 2)
	runs := paragraphs[0].Runs()
	require.Len(t, runs, 2)
	assert.Equal(t, "{{name}}", runs[1].RawText())
}

func TestWrite_UnmodifiedRoundTripKeepsParts(t *testing.T) {
	original := testutil.SimpleDeck("{{title}}", "body").Bytes(t)

	pres, err := OpenBytes(original)
	require.NoError(t, err)
	defer pres.Close()

	assert.False(t, pres.IsModified())
	out, err := pres.Bytes()
	require.NoError(t, err)

	assert.Equal(t, readParts(t, original), readParts(t, out))
}

func TestRunSetText_KeepsFormattingAndOtherParts(t *testing.T) {
	original := testutil.SimpleDeck("Hello {{name}}", "untouched").Bytes(t)
	pres, err := OpenBytes(original)
	require.NoError(t, err)
	defer pres.Close()

	run := pres.Slides()[0].TextShapes()[0].Paragraphs()[0].Runs()[0]
	run.SetText("Hello World")
	require.True(t, pres.IsModified())

	out, err := pres.Bytes()
	require.NoError(t, err)

	before := readParts(t, original)
	after := readParts(t, out)
	assert.Equal(t, before["ppt/slides/slide2.xml"], after["ppt/slides/slide2.xml"])
	assert.Contains(t, string(after["ppt/slides/slide1.xml"]), `<a:rPr lang="en-US" b="1"/><a:t>Hello World</a:t>`)

	reopened, err := OpenBytes(out)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, "Hello World", reopened.Slides()[0].TextShapes()[0].Text())
}

func TestResolveAnchor(t *testing.T) {
	own := testutil.Rect{X: 10, Y: 20, Width: 30, Height: 40}
	deck := testutil.Deck{Slides: []testutil.Slide{{
		Shapes: []testutil.Shape{
			testutil.TextBox(2, own, testutil.Runs("own")),
			testutil.Placeholder(3, "title", "", testutil.Runs("title")),
			testutil.Placeholder(4, "", "1", testutil.Runs("body")),
		},
	}}}
	pres := openDeck(t, deck)
	shapes := pres.Slides()[0].Shapes()
	require.Len(t, shapes, 3)

	tests := []struct {
		name  string
		shape *Shape
		want  testutil.Rect
	}{
		{name: "own_xfrm", shape: shapes[0], want: own},
		{name: "layout_title", shape: shapes[1], want: testutil.LayoutTitleRect},
		{name: "master_body", shape: shapes[2], want: testutil.MasterBodyRect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := tt.shape.ResolveAnchor()
			require.True(t, ok)
			assert.Equal(t, Anchor{X: tt.want.X, Y: tt.want.Y, Width: tt.want.Width, Height: tt.want.Height}, a)
		})
	}

	_, ok := shapes[1].Anchor()
	assert.False(t, ok)
}

func TestAddPicture_Deduplicates(t *testing.T) {
	deck := testutil.SimpleDeck("x")
	deck.Media = map[string][]byte{"image1.png": testutil.PNG}
	pres := openDeck(t, deck)

	existing, err := pres.AddPicture(testutil.PNG, PictureTypePNG)
	require.NoError(t, err)
	assert.Equal(t, "ppt/media/image1.png", existing.PartName)

	jpeg, err := pres.AddPicture(testutil.JPEG, PictureTypeJPEG)
	require.NoError(t, err)
	assert.Equal(t, "ppt/media/image1.jpeg", jpeg.PartName)
	assert.Equal(t, len(testutil.JPEG), jpeg.Size)

	again, err := pres.AddPicture(testutil.JPEG, PictureTypeJPEG)
	require.NoError(t, err)
	assert.Same(t, jpeg, again)

	_, err = pres.AddPicture(nil, PictureTypePNG)
	assert.ErrorIs(t, err, ErrEmptyPicture)

	out, err := pres.Bytes()
	require.NoError(t, err)
	parts := readParts(t, out)
	assert.Equal(t, testutil.JPEG, parts["ppt/media/image1.jpeg"])

	ct := string(parts["[Content_Types].xml"])
	assert.Equal(t, 1, strings.Count(ct, `Extension="jpeg"`))
	assert.Less(t, strings.Index(ct, `Extension="jpeg"`), strings.Index(ct, "<Override"))
}

func TestCreatePicture_InsertedBeforeExtLst(t *testing.T) {
	deck := testutil.Deck{Slides: []testutil.Slide{{
		Shapes: []testutil.Shape{
			testutil.TextBox(2, testutil.Rect{}, testutil.Runs("a")),
			testutil.TextBox(7, testutil.Rect{}, testutil.Runs("b")),
		},
		ExtLst: true,
	}}}
	pres := openDeck(t, deck)
	slide := pres.Slides()[0]

	pd, err := pres.AddPicture(testutil.PNG, PictureTypePNG)
	require.NoError(t, err)
	pic, err := slide.CreatePicture(pd)
	require.NoError(t, err)
	assert.Equal(t, 8, pic.ID())
	assert.Equal(t, ShapeKindPicture, pic.Kind())

	pic.SetAnchor(Anchor{X: 1, Y: 2, Width: 3, Height: 4})

	out, err := pres.Bytes()
	require.NoError(t, err)
	parts := readParts(t, out)

	slideXML := string(parts["ppt/slides/slide1.xml"])
	assert.Less(t, strings.Index(slideXML, "<p:pic>"), strings.Index(slideXML, "<p:extLst>"))
	assert.Contains(t, string(parts["ppt/slides/_rels/slide1.xml.rels"]), `Target="../media/image1.png"`)

	reopened, err := OpenBytes(out)
	require.NoError(t, err)
	defer reopened.Close()

	shapes := reopened.Slides()[0].Shapes()
	require.Len(t, shapes, 3)
	last := shapes[2]
	assert.Equal(t, ShapeKindPicture, last.Kind())
	a, ok := last.Anchor()
	require.True(t, ok)
	assert.Equal(t, Anchor{X: 1, Y: 2, Width: 3, Height: 4}, a)

	rels, err := reopened.Slides()[0].relationships()
	require.NoError(t, err)
	rel, ok := rels.Get(last.EmbedID())
	require.True(t, ok)
	assert.Equal(t, "ppt/media/image1.png", rels.TargetPart(rel))
}

func TestRemoveShape(t *testing.T) {
	pres := openDeck(t, testutil.SimpleDeck("one", "two"))
	slides := pres.Slides()

	target := slides[0].Shapes()[0]
	assert.ErrorIs(t, slides[1].RemoveShape(target), ErrShapeNotFound)

	require.NoError(t, slides[0].RemoveShape(target))
	assert.Empty(t, slides[0].Shapes())
	assert.ErrorIs(t, slides[0].RemoveShape(target), ErrShapeNotFound)
}

func TestCustomProperties(t *testing.T) {
	pres := openDeck(t, testutil.SimpleDeck("x"))

	_, ok, err := pres.CustomProperty("history")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, pres.SetCustomProperty("history", "first"))
	require.NoError(t, pres.SetCustomProperty("history", "second"))
	require.NoError(t, pres.SetCustomProperty("author", "pptx"))

	out, err := pres.Bytes()
	require.NoError(t, err)
	parts := readParts(t, out)
	assert.Contains(t, string(parts["[Content_Types].xml"]), `PartName="/docProps/custom.xml"`)
	assert.Contains(t, string(parts["_rels/.rels"]), `Target="docProps/custom.xml"`)
	assert.Equal(t, 2, strings.Count(string(parts["docProps/custom.xml"]), "<property "))

	reopened, err := OpenBytes(out)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.CustomProperty("history")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)
}

func TestClose_Idempotent(t *testing.T) {
	pres, err := OpenBytes(testutil.SimpleDeck("x").Bytes(t))
	require.NoError(t, err)

	require.NoError(t, pres.Close())
	require.NoError(t, pres.Close())

	_, err = pres.Bytes()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = pres.AddPicture(testutil.PNG, PictureTypePNG)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpen_FromDisk(t *testing.T) {
	path := testutil.SimpleDeck("disk").WriteFile(t, t.TempDir(), "deck.pptx")

	pres, err := Open(path)
	require.NoError(t, err)
	defer pres.Close()
	assert.Equal(t, "disk", pres.Slides()[0].TextShapes()[0].Text())
}

func TestRelationshipPaths(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		target   string
		relative string
	}{
		{name: "slide_to_media", source: "ppt/slides/slide1.xml", target: "ppt/media/image1.png", relative: "../media/image1.png"},
		{name: "presentation_to_slide", source: "ppt/presentation.xml", target: "ppt/slides/slide1.xml", relative: "slides/slide1.xml"},
		{name: "package_root", source: "", target: "docProps/custom.xml", relative: "docProps/custom.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := relativeTarget(tt.source, tt.target)
			assert.Equal(t, tt.relative, rel)
			assert.Equal(t, tt.target, resolveTarget(tt.source, rel))
		})
	}
	assert.Equal(t, "ppt/slides/_rels/slide1.xml.rels", relsPartName("ppt/slides/slide1.xml"))
	assert.Equal(t, "_rels/.rels", relsPartName(""))
}

func TestPictureType(t *testing.T) {
	var zero PictureType
	assert.Equal(t, PictureTypePNG, zero)
	assert.Equal(t, "image/jpeg", PictureTypeJPEG.ContentType())
	assert.Equal(t, "TIFF", PictureTypeTIFF.String())
	assert.Equal(t, PictureTypeJPEG, pictureTypeForExtension("ppt/media/photo.JPG"))
}
