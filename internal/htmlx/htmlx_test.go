package htmlx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageWithContent = `<!DOCTYPE html>
<html><head>
<script>var tracking = true;</script>
<style>.x { color: red }</style>
</head>
<body>
<header><nav><a href="/">Home</a></nav></header>
<!-- build marker -->
<main>
  <ul class="event-list">
    <li>Stadtfest am Rathausplatz mit Musik und vielen Ständen für die ganze Familie</li>
    <li>Konzert im Stadtpark mit regionalen Bands und Essensständen am Abend</li>
  </ul>
</main>
<footer>Impressum</footer>
</body></html>`

func TestCompressStripsNonContent(t *testing.T) {
	got := Compress(pageWithContent, MainPageBudget)

	assert.NotContains(t, got, "tracking")
	assert.NotContains(t, got, "color: red")
	assert.NotContains(t, got, "build marker")
	assert.Contains(t, got, "Stadtfest")
}

func TestCompressPrefersContentBlock(t *testing.T) {
	got := Compress(pageWithContent, MainPageBudget)

	// The main block wins; surrounding chrome is dropped.
	assert.Contains(t, got, "event-list")
	assert.NotContains(t, got, "Impressum")
}

func TestCompressFallsBackToBody(t *testing.T) {
	page := `<html><body>
<header>chrome</header>
<div><p>short page without a dedicated content area</p></div>
</body></html>`

	got := Compress(page, MainPageBudget)

	assert.Contains(t, got, "short page")
	assert.NotContains(t, got, "chrome")
}

func TestCompressRespectsBudget(t *testing.T) {
	big := "<html><body><main>" + strings.Repeat("Veranstaltung im Stadtpark. ", 2000) + "</main></body></html>"

	got := Compress(big, 500)

	assert.LessOrEqual(t, len(got), 500)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestCompressUnparsableInput(t *testing.T) {
	got := Compress("< not <<< html", 100)
	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 100)
}

func TestValidateHTML(t *testing.T) {
	assert.Error(t, ValidateHTML(""))
	assert.NoError(t, ValidateHTML("<html></html>"))
	assert.Error(t, ValidateHTML(strings.Repeat("a", MaxHTMLSize+1)))
}

func TestLoadParsesDocument(t *testing.T) {
	doc, err := Load(pageWithContent)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Find("li").Length())
}

func TestDetectCharsetDefaultsToUTF8(t *testing.T) {
	assert.Equal(t, "utf-8", DetectCharset([]byte("Führung für Groß und Klein: öffentliche Veranstaltung")))
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a \n\t b \r\n c  "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 100))
	assert.Equal(t, "abcde...", Truncate("abcdefghijk", 8))
	assert.Equal(t, "ab", Truncate("ab", 1), "tiny budgets pass through")
}

func TestCompressSanitizesExcerpt(t *testing.T) {
	page := `<html><body><main>
<ul class="event-list">
  <li onclick="steal()">Stadtfest am Rathausplatz mit Musik und vielen Ständen für alle</li>
  <li><a href="javascript:pwn()">Konzert im Stadtpark mit regionalen Bands und Essensständen</a></li>
</ul>
</main></body></html>`

	got := Compress(page, MainPageBudget)

	assert.NotContains(t, got, "onclick")
	assert.NotContains(t, got, "javascript:")
	// Selector hooks survive sanitization.
	assert.Contains(t, got, `class="event-list"`)
	assert.Contains(t, got, "Stadtfest")
}

func TestSanitizerRemovesScripts(t *testing.T) {
	s := NewSanitizer()

	got := s.Sanitize(`<p>text</p><script>alert(1)</script><a href="javascript:x">link</a>`)

	assert.Contains(t, got, "text")
	assert.NotContains(t, got, "script")
	assert.NotContains(t, got, "javascript:")
}
