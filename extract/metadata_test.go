package extract

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const metaHTML = `<!DOCTYPE html>
<html lang="en-GB">
<head>
<title>Page Title</title>
<meta name="description" content="A plain description.">
<meta name="author" content="Jane Reporter">
<meta name="keywords" content="economy, rates , inflation">
<meta property="og:title" content="OG Title">
<meta property="og:description" content="OG description text.">
<meta property="og:image" content="/images/hero.jpg">
<meta property="og:locale" content="en_GB">
<meta property="og:site_name" content="Example News">
<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:image" content="https://cdn.example.com/tw.jpg">
<link rel="canonical" href="https://example.com/story/42">
<link rel="icon" href="/static/favicon.png">
</head>
<body><p>Body.</p></body>
</html>`

func TestExtractMetadata_EmptyInput(t *testing.T) {
	assert.Nil(t, ExtractMetadata("", nil))
}

func TestExtractMetadata_Fields(t *testing.T) {
	base, _ := url.Parse("https://example.com/story/42")

	m := ExtractMetadata(metaHTML, base)
	require.NotNil(t, m)

	assert.Equal(t, "Page Title", m.Title)
	assert.Equal(t, "A plain description.", m.Description)
	assert.Equal(t, "Jane Reporter", m.Author)
	assert.Equal(t, []string{"economy", "rates", "inflation"}, m.Keywords)
	assert.Equal(t, "OG Title", m.OGTitle)
	assert.Equal(t, "OG description text.", m.OGDescription)
	assert.Equal(t, "https://example.com/images/hero.jpg", m.OGImage)
	assert.Equal(t, "en_GB", m.OGLocale)
	assert.Equal(t, "Example News", m.OGSiteName)
	assert.Equal(t, "summary_large_image", m.TwitterCard)
	assert.Equal(t, "https://cdn.example.com/tw.jpg", m.TwitterImage)
	assert.Equal(t, "https://example.com/story/42", m.CanonicalURL)
	assert.Equal(t, "https://example.com/static/favicon.png", m.Favicon)
	assert.Equal(t, "en-GB", m.DeclaredLang)
	assert.Equal(t, m.OGImage, m.HeroImage)
}

func TestExtractMetadata_FaviconFallback(t *testing.T) {
	base, _ := url.Parse("https://example.com/some/page")

	m := ExtractMetadata(`<html><head><title>t</title></head><body></body></html>`, base)
	require.NotNil(t, m)
	assert.Equal(t, "https://example.com/favicon.ico", m.Favicon)
}

func TestExtractMetadata_HeroImageFromBody(t *testing.T) {
	base, _ := url.Parse("https://example.com/")
	html := `<html><head><title>t</title></head><body><img src="/pic.png"></body></html>`

	m := ExtractMetadata(html, base)
	require.NotNil(t, m)
	assert.Equal(t, "https://example.com/pic.png", m.HeroImage)
}
