package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const linkBase = "https://afaq-stores.com/product-details/"

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "products.csv")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return p
}

func TestLoadHeaderOrderIndependent(t *testing.T) {
	p := writeCSV(t, "sell_price,product_id,product_name_ar\n130,123,تيشيرت قطن أبيض\n250,124,بنطلون جينز\n")
	c, err := Load(p, linkBase)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("want 2 products, got %d", c.Len())
	}
	ex := c.Excerpt(1)
	if !strings.Contains(ex, "تيشيرت قطن أبيض") {
		t.Fatalf("name missing from excerpt: %q", ex)
	}
	if !strings.Contains(ex, "130 جنيه") {
		t.Fatalf("price missing from excerpt: %q", ex)
	}
	if !strings.Contains(ex, linkBase+"123") {
		t.Fatalf("link missing from excerpt: %q", ex)
	}
}

func TestLoadMissingColumns(t *testing.T) {
	p := writeCSV(t, "id,name\n1,foo\n")
	if _, err := Load(p, linkBase); err == nil {
		t.Fatalf("want error for missing columns")
	}
}

func TestExcerptBounds(t *testing.T) {
	c := New([]Product{
		{ID: "1", Name: "أ", Price: "10"},
		{ID: "2", Name: "ب", Price: "20"},
		{ID: "3", Name: "ج", Price: "30"},
	}, linkBase)

	if got := strings.Count(c.Excerpt(2), "\n"); got != 1 {
		t.Fatalf("excerpt(2): want 2 lines, got %d", got+1)
	}
	// n <= 0 and n beyond length both render everything.
	if full := c.Excerpt(0); strings.Count(full, "\n") != 2 {
		t.Fatalf("excerpt(0) should render all products: %q", full)
	}
	if full := c.Excerpt(100); strings.Count(full, "\n") != 2 {
		t.Fatalf("excerpt(100) should clamp to catalog size: %q", full)
	}
}

func TestLoadSkipsNamelessRows(t *testing.T) {
	p := writeCSV(t, "product_id,product_name_ar,sell_price\n1,,99\n2,جاكيت,150\n")
	c, err := Load(p, linkBase)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("want nameless row skipped, got %d products", c.Len())
	}
}
