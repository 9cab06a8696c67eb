package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Metadata holds the structured descriptive fields parsed from the document
// head: Open Graph and Twitter card tags, favicon, canonical URL, and the
// declared language attributes consumed by language detection.
type Metadata struct {
	Title         string
	Description   string
	CanonicalURL  string
	OGTitle       string
	OGDescription string
	OGImage       string
	OGLocale      string
	OGSiteName    string
	TwitterCard   string
	TwitterImage  string
	Favicon       string
	HeroImage     string
	Author        string
	Keywords      []string
	DeclaredLang  string
}

// ExtractMetadata parses head/meta tags from raw HTML. Empty input returns
// nil without error. baseURL resolves relative favicon and image references
// and may be nil.
func ExtractMetadata(rawHTML string, baseURL *url.URL) *Metadata {
	trimmed := strings.TrimSpace(rawHTML)
	if trimmed == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		return nil
	}

	m := &Metadata{}

	if lang, ok := doc.Find("html").Attr("lang"); ok {
		m.DeclaredLang = strings.TrimSpace(lang)
	}

	m.Title = strings.TrimSpace(doc.Find("head title").First().Text())

	doc.Find("head meta").Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}

		switch strings.ToLower(s.AttrOr("property", s.AttrOr("name", ""))) {
		case "og:title":
			m.OGTitle = content
		case "og:description":
			m.OGDescription = content
		case "og:image":
			m.OGImage = resolveURL(baseURL, content)
		case "og:locale":
			m.OGLocale = content
		case "og:site_name":
			m.OGSiteName = content
		case "twitter:card":
			m.TwitterCard = content
		case "twitter:image":
			m.TwitterImage = resolveURL(baseURL, content)
		case "description":
			m.Description = content
		case "author":
			m.Author = content
		case "keywords":
			for _, kw := range strings.Split(content, ",") {
				if kw = strings.TrimSpace(kw); kw != "" {
					m.Keywords = append(m.Keywords, kw)
				}
			}
		}
	})

	if href, ok := doc.Find("head link[rel='canonical']").Attr("href"); ok {
		m.CanonicalURL = resolveURL(baseURL, strings.TrimSpace(href))
	}

	m.Favicon = findFavicon(doc, baseURL)

	// Hero image preference: Open Graph, then Twitter card, then the first
	// content image in the document.
	switch {
	case m.OGImage != "":
		m.HeroImage = m.OGImage
	case m.TwitterImage != "":
		m.HeroImage = m.TwitterImage
	default:
		if src, ok := doc.Find("article img, img").First().Attr("src"); ok {
			m.HeroImage = resolveURL(baseURL, strings.TrimSpace(src))
		}
	}

	return m
}

func findFavicon(doc *goquery.Document, baseURL *url.URL) string {
	selectors := []string{
		"head link[rel='icon']",
		"head link[rel='shortcut icon']",
		"head link[rel='apple-touch-icon']",
	}

	for _, sel := range selectors {
		if href, ok := doc.Find(sel).First().Attr("href"); ok {
			if href = strings.TrimSpace(href); href != "" {
				return resolveURL(baseURL, href)
			}
		}
	}

	if baseURL != nil {
		fallback := *baseURL
		fallback.Path = "/favicon.ico"
		fallback.RawQuery = ""
		return fallback.String()
	}

	return ""
}

func resolveURL(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}
