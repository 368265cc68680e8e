// Package sources parses the line-oriented monitoring target list.
package sources

import (
	"bufio"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"unicode"

	"sitewatch/internal/domain"
)

// Load reads the source list at path. One source per line in the form
// `label<tab-or-whitespace>URL`; `#` comments and blank lines are
// ignored. A line holding only a URL yields an empty label. Malformed
// lines are skipped, not fatal; a missing file is a configuration error.
func Load(path string, logger *slog.Logger) ([]domain.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: source list %s: %v", domain.ErrConfig, path, err)
	}
	defer f.Close()

	var items []domain.Source
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		label, rawURL := splitLine(line)
		if !validURL(rawURL) {
			if logger != nil {
				logger.Debug("skip malformed source line", "line", lineNo)
			}
			continue
		}

		items = append(items, domain.Source{Label: label, URL: rawURL})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read source list %s: %w", path, err)
	}

	return items, nil
}

// splitLine separates label and URL. Tabs win over spaces so labels
// containing spaces survive; without any separator the whole line is
// treated as a bare URL.
func splitLine(line string) (label, rawURL string) {
	if i := strings.IndexByte(line, '\t'); i >= 0 {
		rest := strings.Fields(line[i+1:])
		if len(rest) == 0 {
			return strings.TrimSpace(line[:i]), ""
		}
		return strings.TrimSpace(line[:i]), rest[0]
	}

	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		rest := strings.Fields(line[i:])
		return line[:i], rest[0]
	}

	return "", line
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
