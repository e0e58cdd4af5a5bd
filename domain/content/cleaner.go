// Package content implements ContentCleaner: the mechanical HTML/text
// normalization every page-scraping Source result passes through before
// being scored and handed to the synthesizer, plus an optional LLM-backed
// narrowing pass for long or noisy pages.
package content

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/emergent-company/deathrecord/pkg/llm"
)

// Cleaned is the mechanically-cleaned form of one source's raw content,
// ready for keyword confidence scoring and synthesis.
type Cleaned struct {
	Title string
	Text  string
}

var (
	whitespaceRun = regexp.MustCompile(`[ \t\f\v]+`)
	blankLineRun  = regexp.MustCompile(`\n{3,}`)
)

// boilerplatePhrases are editorial/search-page chrome stripped after HTML
// extraction (cookie banners, subscription walls, share prompts), none of
// which ever carries biographical signal.
var boilerplatePhrases = []string{
	"subscribe to continue reading",
	"sign up for our newsletter",
	"accept all cookies",
	"share this article",
	"advertisement",
}

// ContentCleaner mechanically normalizes a source's raw payload, with an
// optional AI-narrowing pass for sources that return long, loosely-relevant
// pages (search results, editorial archives).
type ContentCleaner struct {
	llm llm.Provider
}

// NewContentCleaner builds a ContentCleaner. provider may be nil, in which
// case NarrowWithAI is a no-op passthrough.
func NewContentCleaner(provider llm.Provider) *ContentCleaner {
	return &ContentCleaner{llm: provider}
}

// Clean strips HTML markup down to a title and body text, collapses
// whitespace, and removes known boilerplate phrases. contentType selects
// between the HTML and plain-text code paths.
func (c *ContentCleaner) Clean(raw []byte, contentType string) (*Cleaned, error) {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return c.cleanHTML(raw)
	}
	return &Cleaned{Text: normalizeWhitespace(stripBoilerplate(string(raw)))}, nil
}

func (c *ContentCleaner) cleanHTML(raw []byte) (*Cleaned, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return nil, err
	}

	doc.Find("script, style, nav, footer, header, aside, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	body := strings.TrimSpace(doc.Find("article").Text())
	if body == "" {
		body = strings.TrimSpace(doc.Find("body").Text())
	}

	return &Cleaned{
		Title: title,
		Text:  normalizeWhitespace(stripBoilerplate(body)),
	}, nil
}

func stripBoilerplate(text string) string {
	lower := strings.ToLower(text)
	for _, phrase := range boilerplatePhrases {
		for {
			idx := strings.Index(lower, phrase)
			if idx == -1 {
				break
			}
			text = text[:idx] + text[idx+len(phrase):]
			lower = lower[:idx] + lower[idx+len(phrase):]
		}
	}
	return text
}

func normalizeWhitespace(text string) string {
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// NarrowWithAI asks the configured LLM to extract the passage of cleaned
// relevant to actorName's death/biography, for sources whose cleaned text
// is large enough that mechanical cleaning alone leaves too much noise for
// keyword scoring to be reliable. It is a no-op when no provider is
// configured or cleaned.Text is already short.
func (c *ContentCleaner) NarrowWithAI(ctx context.Context, cleaned *Cleaned, actorName string) (*Cleaned, error) {
	const narrowThreshold = 4000
	if c.llm == nil || !c.llm.IsConfigured() || len(cleaned.Text) < narrowThreshold {
		return cleaned, nil
	}

	prompt := narrowingPrompt(actorName, cleaned.Text)
	narrowed, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		// Narrowing is an optimization, not a contract: fall back to the
		// mechanically-cleaned text rather than failing the source.
		return cleaned, nil
	}

	return &Cleaned{Title: cleaned.Title, Text: strings.TrimSpace(narrowed)}, nil
}

func narrowingPrompt(actorName, text string) string {
	var b strings.Builder
	b.WriteString("Extract only the sentences from the following page text that discuss ")
	b.WriteString(actorName)
	b.WriteString("'s life, career, or death. Return plain text with no commentary.\n\n")
	b.WriteString(text)
	return b.String()
}
