package processor

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/internal/replacer"
	"github.com/allanpk716/pptx_replacer/internal/templates"
	"github.com/allanpk716/pptx_replacer/internal/testutil"
	"github.com/allanpk716/pptx_replacer/internal/tracking"
	"github.com/allanpk716/pptx_replacer/pkg/pptx"
)

func newStore(t *testing.T, decks map[string]testutil.Deck) templates.Store {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, deck := range decks {
		fsys[name] = &fstest.MapFile{Data: deck.Bytes(t)}
	}
	fsys["broken.pptx"] = &fstest.MapFile{Data: []byte("not a zip")}
	return templates.NewFSStore(fsys)
}

func visibleTexts(pres *pptx.Presentation) []string {
	var out []string
	for text := range shapeTexts(pres) {
		out = append(out, text)
	}
	return out
}

func TestModify_EndToEnd(t *testing.T) {
	store := newStore(t, map[string]testutil.Deck{
		"report.pptx": testutil.SimpleDeck("{{title}}", "Revenue: $rev", "{{logo}}"),
	})
	svc := NewModificationService(store, nil)

	pres, err := svc.Modify(context.Background(), domain.TemplateData{
		TemplateName: "report.pptx",
		Placeholders: []domain.Placeholder{
			domain.Text("title", "Q1 Report"),
			domain.Insert("rev", "1000"),
			domain.Image("logo", domain.ImageAsset{Data: testutil.PNG, ContentType: "image/png"}),
		},
	})
	require.NoError(t, err)
	defer pres.Close()

	assert.Equal(t, []string{"Q1 Report", "Revenue: 1000"}, visibleTexts(pres))
	slides := pres.Slides()
	require.Len(t, slides, 3)
	require.Len(t, slides[2].Shapes(), 1)
	assert.Equal(t, pptx.ShapeKindPicture, slides[2].Shapes()[0].Kind())
}

func TestModify_EmptyRequestsRoundTrip(t *testing.T) {
	deck := testutil.SimpleDeck("{{title}}", "body $x")
	store := newStore(t, map[string]testutil.Deck{"a.pptx": deck})

	pres, err := NewModificationService(store, nil).Modify(context.Background(), domain.TemplateData{TemplateName: "a.pptx"})
	require.NoError(t, err)
	defer pres.Close()
	assert.False(t, pres.IsModified())

	data, err := ToBytes(pres)
	require.NoError(t, err)

	reloaded, err := pptx.OpenBytes(data)
	require.NoError(t, err)
	defer reloaded.Close()

	original, err := pptx.OpenBytes(deck.Bytes(t))
	require.NoError(t, err)
	defer original.Close()
	assert.Equal(t, visibleTexts(original), visibleTexts(reloaded))
	assert.Equal(t, len(original.Slides()), len(reloaded.Slides()))
}

func TestModify_LoadFailure(t *testing.T) {
	store := newStore(t, nil)
	svc := NewModificationService(store, nil)

	tests := []string{"missing.pptx", "broken.pptx"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			pres, err := svc.Modify(context.Background(), domain.TemplateData{TemplateName: name})
			assert.Nil(t, pres)
			assert.ErrorIs(t, err, domain.ErrTemplateLoad)
		})
	}

	_, err := svc.Modify(context.Background(), domain.TemplateData{TemplateName: "missing.pptx"})
	assert.ErrorIs(t, err, templates.ErrTemplateNotFound)
	_, err = svc.Modify(context.Background(), domain.TemplateData{TemplateName: "broken.pptx"})
	assert.ErrorIs(t, err, pptx.ErrInvalidPackage)
}

func TestModify_FailFast(t *testing.T) {
	store := newStore(t, map[string]testutil.Deck{"a.pptx": testutil.SimpleDeck("{{a}} {{b}}")})

	pres, err := NewModificationService(store, nil).Modify(context.Background(), domain.TemplateData{
		TemplateName: "a.pptx",
		Placeholders: []domain.Placeholder{
			domain.Text("a", "1"),
			{Key: "b", Type: domain.TypeInsert, Value: domain.ImageAsset{Data: testutil.PNG}},
			domain.Text("b", "2"),
		},
	})
	assert.Nil(t, pres)
	assert.ErrorIs(t, err, domain.ErrMismatchedPayload)
}

func TestModify_CanceledContext(t *testing.T) {
	store := newStore(t, map[string]testutil.Deck{"a.pptx": testutil.SimpleDeck("{{a}}")})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pres, err := NewModificationService(store, nil).Modify(ctx, domain.TemplateData{
		TemplateName: "a.pptx",
		Placeholders: []domain.Placeholder{domain.Text("a", "1")},
	})
	assert.Nil(t, pres)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModifyCollect_ContinuesAfterFailures(t *testing.T) {
	store := newStore(t, map[string]testutil.Deck{"a.pptx": testutil.SimpleDeck("{{a}} {{b}} {{c}}")})

	pres, results, err := NewModificationService(store, nil).ModifyCollect(context.Background(), domain.TemplateData{
		TemplateName: "a.pptx",
		Placeholders: []domain.Placeholder{
			domain.Text("a", "1"),
			{Key: "b", Type: domain.TypeText, Value: nil},
			{Key: "x", Type: "VIDEO", Value: "v"},
			domain.Text("c", "3"),
		},
	})
	require.NoError(t, err)
	defer pres.Close()

	require.Len(t, results, 4)
	assert.Equal(t, 1, results[0].Replacements)
	assert.ErrorIs(t, results[1].Err, domain.ErrMismatchedPayload)
	assert.False(t, results[2].Handled)
	assert.NoError(t, results[3].Err)
	assert.Equal(t, []string{"1 {{b}} 3"}, visibleTexts(pres))

	_, _, err = NewModificationService(store, nil).ModifyCollect(context.Background(), domain.TemplateData{TemplateName: "missing.pptx"})
	assert.ErrorIs(t, err, domain.ErrTemplateLoad)
}

func TestModify_Tracking(t *testing.T) {
	store := newStore(t, map[string]testutil.Deck{"a.pptx": testutil.SimpleDeck("{{a}} $n $n")})
	svc := NewModificationService(store, replacer.NewDefaultDispatcher(), WithTracking(&tracking.Config{Enabled: true}))

	pres, err := svc.Modify(context.Background(), domain.TemplateData{
		TemplateName: "a.pptx",
		Placeholders: []domain.Placeholder{domain.Text("a", "x"), domain.Insert("n", 5)},
	})
	require.NoError(t, err)
	defer pres.Close()

	history, err := tracking.ReadHistory(pres, "")
	require.NoError(t, err)
	require.Len(t, history.Records, 2)
	assert.Equal(t, "n", history.Records[1].Key)
	assert.Equal(t, 2, history.Records[1].Occurrences)
}

func TestReaderService_ExtractPlaceholders(t *testing.T) {
	deck := testutil.Deck{Slides: []testutil.Slide{
		{Shapes: []testutil.Shape{
			testutil.TextBox(2, testutil.Rect{}, testutil.Runs("Hello {{name}}, total: {{name}} items, {{qty}}")),
		}},
		{Shapes: []testutil.Shape{
			testutil.TextBox(2, testutil.Rect{}, testutil.Runs("{{ ", "date", " }}"), testutil.Runs("{{qty}} {{open")),
		}},
	}}
	store := newStore(t, map[string]testutil.Deck{"a.pptx": deck})
	reader := NewReaderService(store)

	keys, err := reader.TemplatePlaceholders(context.Background(), "a.pptx")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "qty", "date"}, keys)

	_, err = reader.TemplatePlaceholders(context.Background(), "nope.pptx")
	assert.ErrorIs(t, err, domain.ErrTemplateLoad)
}

type durations struct {
	ops []string
}

func (d *durations) ObserveDuration(op string, _ time.Duration) {
	d.ops = append(d.ops, op)
}

func TestReportService(t *testing.T) {
	store := newStore(t, map[string]testutil.Deck{"weekly/report.pptx": testutil.SimpleDeck("{{title}}")})
	observer := &durations{}
	svc := NewReportService(NewModificationService(store, nil)).WithDurationObserver(observer)
	data := domain.TemplateData{
		TemplateName: "weekly/report.pptx",
		Placeholders: []domain.Placeholder{domain.Text("title", "Week 1")},
	}

	raw, err := svc.GenerateReportBytes(context.Background(), data)
	require.NoError(t, err)
	pres, err := pptx.OpenBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Week 1"}, visibleTexts(pres))
	pres.Close()

	download, err := svc.GenerateReport(context.Background(), data, "")
	require.NoError(t, err)
	assert.Equal(t, "report_generated.pptx", download.Filename)
	assert.Equal(t, pptx.PresentationMimeType, download.ContentType)
	assert.Equal(t, "attachment; filename=report_generated.pptx", download.ContentDisposition())
	assert.NotEmpty(t, download.Data)

	model, err := svc.GenerateReportPresentation(context.Background(), data)
	require.NoError(t, err)
	model.Close()

	_, err = svc.GenerateReport(context.Background(), domain.TemplateData{TemplateName: "missing.pptx"}, "x.pptx")
	assert.ErrorIs(t, err, domain.ErrTemplateLoad)

	assert.Equal(t, []string{"bytes", "download", "presentation", "download"}, observer.ops)
}

func TestSerializer(t *testing.T) {
	pres, err := pptx.OpenBytes(testutil.SimpleDeck("x").Bytes(t))
	require.NoError(t, err)
	require.NoError(t, pres.Close())

	_, err = ToBytes(pres)
	assert.ErrorIs(t, err, domain.ErrSerialization)
	_, err = PrepareDownload(pres, "x.pptx")
	assert.ErrorIs(t, err, domain.ErrSerialization)

	tests := []struct {
		template string
		expected string
	}{
		{"weekly.pptx", "weekly_generated.pptx"},
		{"reports/monthly.pptx", "monthly_generated.pptx"},
		{`C:\templates\invoice.pptx`, "invoice_generated.pptx"},
		{"noext", "noext_generated.pptx"},
		{"", "presentation_generated.pptx"},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			assert.Equal(t, tt.expected, GeneratedFilename(tt.template))
		})
	}
}
