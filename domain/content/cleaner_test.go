package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	configured bool
	response   string
	err        error
}

func (s *stubProvider) IsConfigured() bool { return s.configured }

func (s *stubProvider) Complete(context.Context, string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestContentCleaner_Clean_HTML(t *testing.T) {
	html := `<html><head><title>  Obituary: Jane Doe  </title><style>.x{}</style></head>
<body><nav>menu</nav><article>Jane Doe, 82, died peacefully.   Advertisement</article>
<footer>copyright</footer></body></html>`

	c := NewContentCleaner(nil)
	cleaned, err := c.Clean([]byte(html), "text/html; charset=utf-8")

	require.NoError(t, err)
	assert.Equal(t, "Obituary: Jane Doe", cleaned.Title)
	assert.Equal(t, "Jane Doe, 82, died peacefully.", cleaned.Text)
}

func TestContentCleaner_Clean_PlainText(t *testing.T) {
	c := NewContentCleaner(nil)
	cleaned, err := c.Clean([]byte("Line one.\n\n\n\nLine   two."), "text/plain")

	require.NoError(t, err)
	assert.Equal(t, "Line one.\n\nLine two.", cleaned.Text)
}

func TestContentCleaner_Clean_FallsBackToBody(t *testing.T) {
	html := `<html><body><p>No article tag here, just body text.</p></body></html>`

	c := NewContentCleaner(nil)
	cleaned, err := c.Clean([]byte(html), "text/html")

	require.NoError(t, err)
	assert.Equal(t, "No article tag here, just body text.", cleaned.Text)
}

func TestContentCleaner_NarrowWithAI_NoProvider(t *testing.T) {
	c := NewContentCleaner(nil)
	cleaned := &Cleaned{Text: strings.Repeat("x", 5000)}

	out, err := c.NarrowWithAI(context.Background(), cleaned, "Jane Doe")

	require.NoError(t, err)
	assert.Same(t, cleaned, out)
}

func TestContentCleaner_NarrowWithAI_ShortTextSkipsNarrowing(t *testing.T) {
	provider := &stubProvider{configured: true, response: "should not be used"}
	c := NewContentCleaner(provider)
	cleaned := &Cleaned{Text: "short text"}

	out, err := c.NarrowWithAI(context.Background(), cleaned, "Jane Doe")

	require.NoError(t, err)
	assert.Same(t, cleaned, out)
}

func TestContentCleaner_NarrowWithAI_NotConfiguredSkipsNarrowing(t *testing.T) {
	provider := &stubProvider{configured: false, response: "should not be used"}
	c := NewContentCleaner(provider)
	cleaned := &Cleaned{Text: strings.Repeat("x", 5000)}

	out, err := c.NarrowWithAI(context.Background(), cleaned, "Jane Doe")

	require.NoError(t, err)
	assert.Same(t, cleaned, out)
}

func TestContentCleaner_NarrowWithAI_UsesProviderResponse(t *testing.T) {
	provider := &stubProvider{configured: true, response: "  Jane Doe died in 2024.  "}
	c := NewContentCleaner(provider)
	cleaned := &Cleaned{Title: "Obituary", Text: strings.Repeat("x", 5000)}

	out, err := c.NarrowWithAI(context.Background(), cleaned, "Jane Doe")

	require.NoError(t, err)
	assert.Equal(t, "Obituary", out.Title)
	assert.Equal(t, "Jane Doe died in 2024.", out.Text)
}

func TestContentCleaner_NarrowWithAI_ProviderErrorFallsBack(t *testing.T) {
	provider := &stubProvider{configured: true, err: errors.New("quota exceeded")}
	c := NewContentCleaner(provider)
	cleaned := &Cleaned{Text: strings.Repeat("x", 5000)}

	out, err := c.NarrowWithAI(context.Background(), cleaned, "Jane Doe")

	require.NoError(t, err)
	assert.Same(t, cleaned, out)
}
