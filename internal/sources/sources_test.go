package sources

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sitewatch/internal/domain"
)

func TestLoadParsesSourceList(t *testing.T) {
	t.Parallel()

	content := "# monitored sections\n" +
		"\n" +
		"Alpha University\thttps://example.edu/news\n" +
		"Beta College https://beta.example.org/announcements\n" +
		"https://bare.example.net/feed\n" +
		"broken line without url\n" +
		"Gamma Institute ftp://gamma.example.org/files\n" +
		"Delta School\thttps://delta.example.com/list extra-trailing-field\n"

	path := filepath.Join(t.TempDir(), "sources.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources: %v", err)
	}

	items, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	want := []domain.Source{
		{Label: "Alpha University", URL: "https://example.edu/news"},
		{Label: "Beta College", URL: "https://beta.example.org/announcements"},
		{Label: "", URL: "https://bare.example.net/feed"},
		{Label: "Delta School", URL: "https://delta.example.com/list"},
	}

	if len(items) != len(want) {
		t.Fatalf("expected %d sources, got %d: %+v", len(want), len(items), items)
	}
	for i, item := range items {
		if item != want[i] {
			t.Fatalf("source %d: expected %+v, got %+v", i, want[i], item)
		}
	}
}

func TestLoadLabelWithSpacesNeedsTab(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sources.txt")
	if err := os.WriteFile(path, []byte("Alpha University https://example.edu/news\n"), 0o644); err != nil {
		t.Fatalf("write sources: %v", err)
	}

	items, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	// Without a tab the first whitespace run separates the fields, so the
	// second word of the label lands where the URL belongs and the line
	// is dropped as malformed rather than aborting the run.
	if len(items) != 0 {
		t.Fatalf("expected 0 sources, got %d: %+v", len(items), items)
	}
}

func TestLoadMissingFileIsConfigError(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.txt"), nil)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
