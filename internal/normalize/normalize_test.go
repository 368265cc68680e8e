package normalize

import (
	"strings"
	"testing"
	"unicode/utf8"
)

const listingPage = `<html><head><title>News</title>
<script>var hits = 48213;</script>
<style>.footer { color: gray }</style>
</head><body>
<nav><a href="#top">Top</a> <a href="javascript:void(0)">Menu</a></nav>
<ul>
  <li><a href="/news/2026/admissions-open.html">Admissions now open for fall term</a></li>
  <li><a href="/news/2026/schedule-change.html">Examination schedule change notice</a></li>
</ul>
<div class="footer">Visits: 48213 · Generated 2026-08-28 09:15:02</div>
</body></html>`

func TestNormalizePageExtractsLinks(t *testing.T) {
	t.Parallel()

	got := Normalize([]byte(listingPage), false)

	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 link lines, got %d: %q", len(lines), got)
	}
	if !strings.Contains(lines[0], "Admissions now open") || !strings.Contains(lines[0], "/news/2026/admissions-open.html") {
		t.Fatalf("unexpected first line: %q", lines[0])
	}
	if strings.Contains(got, "#top") || strings.Contains(got, "javascript:") {
		t.Fatalf("chrome links leaked into output: %q", got)
	}
}

func TestNormalizeIgnoresFooterChurn(t *testing.T) {
	t.Parallel()

	churned := strings.Replace(listingPage, "48213", "99997", 2)
	churned = strings.Replace(churned, "2026-08-28 09:15:02", "2026-08-29 04:00:11", 1)

	if Normalize([]byte(listingPage), false) != Normalize([]byte(churned), false) {
		t.Fatal("footer-only difference changed the normalized output")
	}
	if Fingerprint(Normalize([]byte(listingPage), false)) != Fingerprint(Normalize([]byte(churned), false)) {
		t.Fatal("footer-only difference changed the fingerprint")
	}
}

func TestNormalizeSensitiveToNewEntries(t *testing.T) {
	t.Parallel()

	grown := strings.Replace(listingPage, "</ul>",
		`<li><a href="/news/2026/transfer-quota.html">Transfer quota announcement published</a></li></ul>`, 1)

	if Normalize([]byte(listingPage), false) == Normalize([]byte(grown), false) {
		t.Fatal("added list entry did not change the normalized output")
	}
}

func TestNormalizePageFallsBackToVisibleText(t *testing.T) {
	t.Parallel()

	page := `<html><body>
<script>track();</script>
<p>Office   closed    today.</p>


<p>Reopens tomorrow.</p>
</body></html>`

	got := Normalize([]byte(page), false)
	if strings.Contains(got, "track()") {
		t.Fatalf("script text leaked: %q", got)
	}
	if !strings.Contains(got, "Office closed today.") {
		t.Fatalf("expected collapsed visible text, got %q", got)
	}
}

func TestNormalizeFeed(t *testing.T) {
	t.Parallel()

	feed := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>News</title>
<item><title>First bulletin</title><link>https://example.edu/a</link></item>
<item><title>Second bulletin</title><link>https://example.edu/b</link></item>
</channel></rss>`

	got := Normalize([]byte(feed), true)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 entry lines, got %d: %q", len(lines), got)
	}
	if !strings.HasPrefix(lines[0], "First bulletin") || !strings.HasSuffix(lines[0], "https://example.edu/a") {
		t.Fatalf("unexpected entry line: %q", lines[0])
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	t.Parallel()

	first := Normalize([]byte(listingPage), false)
	for i := 0; i < 5; i++ {
		if Normalize([]byte(listingPage), false) != first {
			t.Fatal("normalization is not deterministic")
		}
	}
}

func TestNormalizeCapsOutput(t *testing.T) {
	t.Parallel()

	huge := strings.Repeat("<p>line of filler text for the cap check</p>\n", 2000)
	got := Normalize([]byte("<html><body>"+huge+"</body></html>"), false)
	if len(got) > maxChars {
		t.Fatalf("output exceeds cap: %d bytes", len(got))
	}
}

func TestNormalizeKeepsContentAfterInvalidByte(t *testing.T) {
	t.Parallel()

	// A stray non-UTF-8 byte pair near the top of an oversized page must
	// not cost the content behind it; only an incomplete rune at the cut
	// point itself may be dropped.
	page := "<html><body><p>head " + string([]byte{0xb1, 0xb1}) + "</p>" +
		strings.Repeat("<p>filler paragraph text for the boundary check</p>", 600) +
		"</body></html>"

	got := Normalize([]byte(page), false)
	if len(got) > maxChars {
		t.Fatalf("output exceeds cap: %d bytes", len(got))
	}
	if len(got) < maxChars-utf8.UTFMax {
		t.Fatalf("truncation discarded content beyond the boundary rune: kept %d of %d bytes", len(got), maxChars)
	}
	if !strings.Contains(got, "filler paragraph text") {
		t.Fatalf("content after the invalid byte was lost: %q", got)
	}
}

func TestDecodeGBKPage(t *testing.T) {
	t.Parallel()

	// 北京大学 in GBK.
	gbkName := string([]byte{0xb1, 0xb1, 0xbe, 0xa9, 0xb4, 0xf3, 0xd1, 0xa7})
	utf8Name := "北京大学"

	// Everything around the placeholder stays ASCII, which encodes
	// identically in GBK and UTF-8.
	shell := `<html><body><ul>
<li><a href="/news/1.html">%s admissions notice published</a></li>
</ul></body></html>`

	gbkBody := []byte(strings.Replace(shell, "%s", gbkName, 1))
	utf8Body := []byte(strings.Replace(shell, "%s", utf8Name, 1))

	decoded := Decode(gbkBody, "text/html; charset=gbk")
	if Normalize(decoded, false) != Normalize(utf8Body, false) {
		t.Fatal("GBK page did not decode to its UTF-8 rendition")
	}
	if !strings.Contains(Normalize(decoded, false), utf8Name) {
		t.Fatalf("decoded output lacks the UTF-8 text: %q", Normalize(decoded, false))
	}
	if Decode(utf8Body, "text/html; charset=utf-8") == nil {
		t.Fatal("UTF-8 body must pass through Decode")
	}
}

func TestXHTMLNotHashedAsMarkup(t *testing.T) {
	t.Parallel()

	xhtml := `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml"><head>
<script>var counter = 12345;</script>
</head><body><ul>
<li><a href="/news/2026/notice-one.html">First departmental notice published</a></li>
</ul></body></html>`

	if FeedLike("application/xhtml+xml", []byte(xhtml)) {
		t.Fatal("XHTML document classified as a feed")
	}
	if FeedLike("", []byte(xhtml)) {
		t.Fatal("XML prolog alone classified the document as a feed")
	}

	// Even if a source were routed through the feed branch, the failed
	// feed parse must land in link extraction, never raw markup.
	got := Normalize([]byte(xhtml), true)
	if strings.Contains(got, "counter = 12345") || strings.Contains(got, "<?xml") {
		t.Fatalf("markup or script text leaked into output: %q", got)
	}
	if !strings.Contains(got, "First departmental notice") || !strings.Contains(got, "/news/2026/notice-one.html") {
		t.Fatalf("expected link extraction output, got %q", got)
	}
}

func TestFeedLike(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		contentType string
		body        string
		want        bool
	}{
		{"rss content type", "application/rss+xml", "<html>", true},
		{"atom content type", "application/atom+xml", "", true},
		{"xml content type with feed root", "text/xml; charset=utf-8", `<rss version="2.0">`, true},
		{"xml content type with html root", "text/xml; charset=utf-8", "<html>", false},
		{"leading rss tag", "text/html", `<rss version="2.0">`, true},
		{"xml decl then feed root", "", `  <?xml version="1.0"?> <rss version="2.0">`, true},
		{"comment then feed root", "", `<!-- generated --><feed xmlns="http://www.w3.org/2005/Atom">`, true},
		{"atom root", "", "<feed xmlns=\"http://www.w3.org/2005/Atom\">", true},
		{"xml decl alone", "", `  <?xml version="1.0"?>`, false},
		{"xhtml content type", "application/xhtml+xml", `<?xml version="1.0"?><html>`, false},
		{"xhtml with prolog", "text/html", `<?xml version="1.0" encoding="UTF-8"?><!DOCTYPE html><html>`, false},
		{"plain html", "text/html", "<!DOCTYPE html><html>", false},
	}

	for _, tc := range cases {
		if got := FeedLike(tc.contentType, []byte(tc.body)); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
