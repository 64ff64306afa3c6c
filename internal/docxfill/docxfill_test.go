package docxfill

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allanpk716/pptx_replacer/internal/domain"
	"github.com/allanpk716/pptx_replacer/internal/testutil"
)

func TestFill(t *testing.T) {
	doc := testutil.Docx(t, "Title: {{title}}", "Total: $total, again {{title}}", "Keep {{other}}")

	out, results, err := Fill(context.Background(), doc, []domain.Placeholder{
		domain.Text("title", "Q1 & Q2"),
		domain.Insert("total", 1500),
		domain.Image("logo", domain.ImageAsset{Data: testutil.PNG, ContentType: "image/png"}),
		domain.Text("missing", "x"),
	})
	require.NoError(t, err)

	require.Len(t, results, 4)
	assert.Equal(t, 2, results[0].Replacements)
	assert.Equal(t, 1, results[1].Replacements)
	assert.False(t, results[2].Handled)
	assert.True(t, results[3].Handled)
	assert.Equal(t, 0, results[3].Replacements)

	content, err := Content(out)
	require.NoError(t, err)
	assert.Contains(t, content, "Title: Q1 &amp; Q2")
	assert.Contains(t, content, "Total: 1500, again Q1 &amp; Q2")
	assert.Contains(t, content, "Keep {{other}}")
	assert.NotContains(t, content, "$total")
}

func TestFill_Errors(t *testing.T) {
	_, _, err := Fill(context.Background(), []byte("not a zip"), nil)
	assert.ErrorIs(t, err, ErrInvalidDocument)

	doc := testutil.Docx(t, "{{a}}")
	_, _, err = Fill(context.Background(), doc, []domain.Placeholder{{Key: "a", Type: domain.TypeText}})
	assert.ErrorIs(t, err, domain.ErrMismatchedPayload)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Fill(ctx, doc, []domain.Placeholder{domain.Text("a", "1")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlaceholders(t *testing.T) {
	doc := testutil.Docx(t, "{{title}} and {{ date }}", `{{</w:t></w:r><w:r><w:t>split}} {{title}}`)

	keys, err := Placeholders(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "date", "split"}, keys)

	_, err = Placeholders([]byte("nope"))
	assert.ErrorIs(t, err, ErrInvalidDocument)
}
