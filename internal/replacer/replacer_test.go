package replacer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/internal/testutil"
	"github.com/allanpk716/pptx_replacer/pkg/pptx"
)

func open(t *testing.T, deck testutil.Deck) *pptx.Presentation {
	t.Helper()
	pres, err := pptx.OpenBytes(deck.Bytes(t))
	require.NoError(t, err)
	t.Cleanup(func() { pres.Close() })
	return pres
}

func texts(pres *pptx.Presentation) []string {
	var out []string
	for _, slide := range pres.Slides() {
		for _, shape := range slide.TextShapes() {
			out = append(out, shape.Text())
		}
	}
	return out
}

func runTexts(pres *pptx.Presentation) []string {
	var out []string
	for _, slide := range pres.Slides() {
		for _, shape := range slide.TextShapes() {
			for _, p := range shape.Paragraphs() {
				for _, r := range p.Runs() {
					out = append(out, r.RawText())
				}
			}
		}
	}
	return out
}

func TestTextReplacer(t *testing.T) {
	deck := testutil.Deck{Slides: []testutil.Slide{
		{Shapes: []testutil.Shape{
			testutil.TextBox(2, testutil.Rect{}, testutil.Runs("Dear ", "{{name}}", ", hi {{name}}")),
			testutil.TextBox(3, testutil.Rect{}, testutil.Runs("untouched {{other}}")),
		}},
		{Shapes: []testutil.Shape{
			testutil.TextBox(2, testutil.Rect{}, testutil.Runs("{{name}}")),
		}},
	}}
	pres := open(t, deck)

	n, err := NewTextReplacer().Replace(context.Background(), pres, domain.Text("name", "Ann"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"Dear ", "Ann", ", hi Ann", "untouched {{other}}", "Ann"}, runTexts(pres))
}

func TestTextReplacer_NoMatchLeavesDocumentUntouched(t *testing.T) {
	pres := open(t, testutil.SimpleDeck("Hello {{name}}", "Revenue: $rev"))

	for _, p := range []domain.Placeholder{domain.Text("missing", "x"), domain.Insert("missing", "x")} {
		d := NewDefaultDispatcher()
		res, err := d.Dispatch(context.Background(), pres, p)
		require.NoError(t, err)
		assert.True(t, res.Handled)
		assert.Zero(t, res.Replacements)
	}
	assert.False(t, pres.IsModified())
}

func TestInsertReplacer(t *testing.T) {
	pres := open(t, testutil.SimpleDeck("Revenue: $rev, again $rev", "$revenue_total", "none"))

	n, err := NewInsertReplacer().Replace(context.Background(), pres, domain.Insert("rev", 1000))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"Revenue: 1000, again 1000", "1000enue_total", "none"}, texts(pres))
}

func TestInsertReplacer_ValueContainingMarkerIsNotIdempotent(t *testing.T) {
	pres := open(t, testutil.SimpleDeck("$x"))
	r := NewInsertReplacer()

	_, err := r.Replace(context.Background(), pres, domain.Insert("x", "[$x]"))
	require.NoError(t, err)
	_, err = r.Replace(context.Background(), pres, domain.Insert("x", "[$x]"))
	require.NoError(t, err)
	assert.Equal(t, []string{"[[$x]]"}, texts(pres))
}

func TestReplacers_MismatchedPayload(t *testing.T) {
	img := domain.ImageAsset{Data: testutil.PNG, ContentType: "image/png"}
	tests := []struct {
		name     string
		replacer Replacer
		p        domain.Placeholder
	}{
		{name: "text_with_image", replacer: NewTextReplacer(), p: domain.Placeholder{Key: "a", Type: domain.TypeText, Value: img}},
		{name: "insert_with_nil", replacer: NewInsertReplacer(), p: domain.Placeholder{Key: "a", Type: domain.TypeInsert}},
		{name: "image_with_string", replacer: NewImageReplacer(), p: domain.Placeholder{Key: "a", Type: domain.TypeImage, Value: "logo.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pres := open(t, testutil.SimpleDeck("{{a}} $a"))
			_, err := tt.replacer.Replace(context.Background(), pres, tt.p)
			assert.ErrorIs(t, err, domain.ErrMismatchedPayload)
			assert.False(t, pres.IsModified())
		})
	}
}

func TestImageReplacer_SwapsShapeKeepingAnchor(t *testing.T) {
	rect := testutil.Rect{X: 914400, Y: 457200, Width: 1828800, Height: 914400}
	deck := testutil.Deck{Slides: []testutil.Slide{{
		Shapes: []testutil.Shape{
			testutil.TextBox(2, testutil.Rect{}, testutil.Runs("Title")),
			testutil.TextBox(3, rect, testutil.Runs("{{logo}}")),
			testutil.TextBox(4, testutil.Rect{}, testutil.Runs("Footer")),
		},
	}}}
	pres := open(t, deck)

	n, err := NewImageReplacer().Replace(context.Background(), pres, domain.Image("logo", domain.ImageAsset{Data: testutil.PNG, ContentType: "image/png"}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	out, err := pres.Bytes()
	require.NoError(t, err)
	reopened, err := pptx.OpenBytes(out)
	require.NoError(t, err)
	defer reopened.Close()

	shapes := reopened.Slides()[0].Shapes()
	require.Len(t, shapes, 3)
	assert.Equal(t, "Title", shapes[0].Text())
	assert.Equal(t, "Footer", shapes[1].Text())

	pic := shapes[2]
	assert.Equal(t, pptx.ShapeKindPicture, pic.Kind())
	anchor, ok := pic.Anchor()
	require.True(t, ok)
	assert.Equal(t, pptx.Anchor{X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height}, anchor)
	assert.NotContains(t, texts(reopened), "{{logo}}")
}

func TestImageReplacer_FirstMatchOnly(t *testing.T) {
	pres := open(t, testutil.SimpleDeck("{{logo}}", "{{logo}}"))

	n, err := NewImageReplacer().Replace(context.Background(), pres, domain.Image("logo", domain.ImageAsset{Data: testutil.JPEG, ContentType: "image/jpeg"}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	slides := pres.Slides()
	assert.Empty(t, slides[0].TextShapes())
	assert.Len(t, slides[0].Shapes(), 1)
	assert.Equal(t, []string{"{{logo}}"}, texts(pres))
}

func TestImageReplacer_InheritsPlaceholderAnchor(t *testing.T) {
	deck := testutil.Deck{Slides: []testutil.Slide{{
		Shapes: []testutil.Shape{testutil.Placeholder(2, "title", "", testutil.Runs("{{", "chart", "}}"))},
	}}}
	pres := open(t, deck)

	n, err := NewImageReplacer().Replace(context.Background(), pres, domain.Image("chart", domain.ImageAsset{Data: testutil.PNG}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	shapes := pres.Slides()[0].Shapes()
	require.Len(t, shapes, 1)
	anchor, ok := shapes[0].Anchor()
	require.True(t, ok)
	want := testutil.LayoutTitleRect
	assert.Equal(t, pptx.Anchor{X: want.X, Y: want.Y, Width: want.Width, Height: want.Height}, anchor)
}

func TestImageReplacer_DefaultAnchorWithoutPosition(t *testing.T) {
	deck := testutil.Deck{Slides: []testutil.Slide{{
		Shapes: []testutil.Shape{{ID: 2, Name: "Loose", Paragraphs: [][]string{testutil.Runs("{{logo}}")}}},
	}}}
	pres := open(t, deck)

	n, err := NewImageReplacer().Replace(context.Background(), pres, domain.Image("logo", domain.ImageAsset{Data: testutil.PNG}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	shapes := pres.Slides()[0].Shapes()
	require.Len(t, shapes, 1)
	anchor, ok := shapes[0].Anchor()
	require.True(t, ok)
	assert.Equal(t, DefaultPictureAnchor, anchor)
	assert.Positive(t, anchor.Width)
	assert.Positive(t, anchor.Height)
}

func TestImageReplacer_NoMatchIsNoop(t *testing.T) {
	pres := open(t, testutil.SimpleDeck("no markers"))

	n, err := NewImageReplacer().Replace(context.Background(), pres, domain.Image("logo", domain.ImageAsset{Data: testutil.PNG}))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, pres.IsModified())
}

type recordingObserver struct {
	results []domain.Result
}

func (o *recordingObserver) ObserveDispatch(result domain.Result, _ time.Duration) {
	o.results = append(o.results, result)
}

type fixedReplacer struct {
	name string
	n    int
}

func (f fixedReplacer) Name() string                       { return f.name }
func (f fixedReplacer) CanHandle(p domain.Placeholder) bool { return p.Type == domain.TypeText }
func (f fixedReplacer) Replace(context.Context, *pptx.Presentation, domain.Placeholder) (int, error) {
	return f.n, nil
}

func TestDispatcher_UnroutableRequest(t *testing.T) {
	pres := open(t, testutil.SimpleDeck("{{video}}"))
	observer := &recordingObserver{}
	d := NewDefaultDispatcher().WithObserver(observer)

	res, err := d.Dispatch(context.Background(), pres, domain.Placeholder{Key: "video", Type: "VIDEO", Value: "x"})
	require.NoError(t, err)
	assert.False(t, res.Handled)
	assert.False(t, pres.IsModified())
	require.Len(t, observer.results, 1)
	assert.False(t, observer.results[0].Handled)
}

func TestDispatcher_FirstAcceptorWins(t *testing.T) {
	pres := open(t, testutil.SimpleDeck("x"))
	d := NewDispatcher(fixedReplacer{name: "first", n: 7}, fixedReplacer{name: "second", n: 9})

	res, err := d.Dispatch(context.Background(), pres, domain.Text("k", "v"))
	require.NoError(t, err)
	assert.True(t, res.Handled)
	assert.Equal(t, 7, res.Replacements)
}

func TestDispatcher_SurfacesStrategyError(t *testing.T) {
	pres := open(t, testutil.SimpleDeck("{{a}}"))
	observer := &recordingObserver{}
	d := NewDefaultDispatcher().WithObserver(observer)

	res, err := d.Dispatch(context.Background(), pres, domain.Placeholder{Key: "a", Type: domain.TypeText, Value: []byte("x")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMismatchedPayload)
	assert.True(t, res.Handled)
	assert.Equal(t, err, res.Err)
	require.Len(t, observer.results, 1)

	names := make([]string, 0, 3)
	for _, r := range d.Replacers() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{"text", "insert", "image"}, names)
}

func TestEndToEnd_TextAndInsert(t *testing.T) {
	pres := open(t, testutil.SimpleDeck("{{title}}", "Revenue: $rev"))
	d := NewDefaultDispatcher()

	for _, p := range []domain.Placeholder{domain.Text("title", "Q1 Report"), domain.Insert("rev", "1000")} {
		_, err := d.Dispatch(context.Background(), pres, p)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"Q1 Report", "Revenue: 1000"}, texts(pres))
}
