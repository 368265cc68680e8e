// Package normalize reduces raw fetch bodies to a noise-resistant text
// representation and computes content fingerprints over it.
//
// Hashing raw HTML is unusable: scripts, counters, and dynamic widgets
// change on every fetch. Instead the reduction keeps only the list-like
// content a reader would care about (feed entries or page links), so
// fingerprints stay stable across chrome churn.
package normalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html/charset"
)

const (
	// maxChars bounds the normalized output so fingerprint cost stays
	// flat and trailing boilerplate cannot cause churn.
	maxChars = 12000

	// minAnchorRunes rejects icon/pagination anchors ("»", "1", "...").
	minAnchorRunes = 4

	separator = "\t"
)

var horizontalSpace = regexp.MustCompile(`[ \t\x{00a0}]+`)

// Decode converts a raw response body to UTF-8, honoring the declared
// content-type charset and in-document meta hints. Many monitored pages
// are GBK/GB2312-encoded; bodies that are already UTF-8, or that cannot
// be decoded, pass through unchanged.
func Decode(body []byte, contentType string) []byte {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return body
	}
	return decoded
}

// FeedLike reports whether a response should go through the feed branch,
// judged by content type first and the document root second. An XML
// prolog alone proves nothing: XHTML pages carry one too.
func FeedLike(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "xhtml") {
		return false
	}
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") {
		return true
	}
	return feedRoot(body)
}

// feedRoot skips the XML prolog, comments, and whitespace and checks
// whether the root element is a feed format.
func feedRoot(body []byte) bool {
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	s := strings.TrimSpace(string(head))
	for {
		switch {
		case strings.HasPrefix(s, "<?"):
			end := strings.Index(s, "?>")
			if end < 0 {
				return false
			}
			s = strings.TrimSpace(s[end+2:])
		case strings.HasPrefix(s, "<!--"):
			end := strings.Index(s, "-->")
			if end < 0 {
				return false
			}
			s = strings.TrimSpace(s[end+3:])
		default:
			s = strings.ToLower(s)
			return strings.HasPrefix(s, "<rss") ||
				strings.HasPrefix(s, "<feed") ||
				strings.HasPrefix(s, "<rdf")
		}
	}
}

// Normalize converts a raw body into the reduced representation.
// Deterministic and pure; output is capped at maxChars.
func Normalize(body []byte, feedLike bool) string {
	var text string
	if feedLike {
		text = normalizeFeed(body)
	} else {
		text = normalizePage(body)
	}
	return truncate(text)
}

// Fingerprint returns the hex SHA-256 digest of the normalized text.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// normalizeFeed emits one line per feed entry. An empty or unparseable
// feed gets the page treatment: a misclassified XHTML document must end
// up in link extraction, not hashed as raw markup.
func normalizeFeed(body []byte) string {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil || parsed == nil || len(parsed.Items) == 0 {
		return normalizePage(body)
	}

	var b strings.Builder
	for _, item := range parsed.Items {
		link := item.Link
		if link == "" {
			link = item.GUID
		}
		b.WriteString(strings.TrimSpace(item.Title))
		b.WriteString(separator)
		b.WriteString(strings.TrimSpace(link))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// normalizePage emits one line per qualifying hyperlink. This targets
// the common "list of postings" page shape; nav, footers, and ads rarely
// carry long anchor text pointing at real documents. When no link
// qualifies the visible text is used instead.
func normalizePage(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return collapse(string(body))
	}

	var b strings.Builder
	count := 0
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(horizontalSpace.ReplaceAllString(sel.Text(), " "))
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if !qualifies(text, href) {
			return
		}
		b.WriteString(text)
		b.WriteString(separator)
		b.WriteString(href)
		b.WriteByte('\n')
		count++
	})

	if count == 0 {
		return visibleText(doc)
	}
	return strings.TrimRight(b.String(), "\n")
}

func qualifies(text, href string) bool {
	if utf8.RuneCountInString(text) < minAnchorRunes {
		return false
	}
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	if strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return false
	}
	return true
}

// visibleText extracts document text with script/style noise removed and
// whitespace collapsed.
func visibleText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()
	return collapse(doc.Text())
}

// collapse trims every line, squeezes horizontal whitespace runs to one
// space, and folds consecutive blank lines into one.
func collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
				blank = true
			}
			continue
		}
		out = append(out, line)
		blank = false
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

// truncate cuts at maxChars, dropping only an incomplete trailing rune
// at the boundary. Invalid bytes in the interior are content and stay
// hashed; backing up past them would blind the fingerprint to
// everything after the first bad byte.
func truncate(s string) string {
	if len(s) <= maxChars {
		return s
	}
	cut := s[:maxChars]
	for i := 0; i < utf8.UTFMax-1; i++ {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size != 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut
}
