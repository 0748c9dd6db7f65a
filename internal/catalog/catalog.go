package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Product is one catalog row. Price is kept verbatim from the CSV so the
// rendered excerpt matches whatever the store operator exported.
type Product struct {
	ID    string
	Name  string
	Price string
}

// Catalog is the read-only product list loaded once at startup.
type Catalog struct {
	products []Product
	linkBase string
}

func New(products []Product, linkBase string) *Catalog {
	return &Catalog{products: products, linkBase: linkBase}
}

// Load reads a products CSV with product_id, product_name_ar and sell_price
// columns; header order does not matter. Rows missing a name are skipped.
func Load(path, linkBase string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()
	products, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return New(products, linkBase), nil
}

func parse(r io.Reader) ([]Product, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	idCol, okID := col["product_id"]
	nameCol, okName := col["product_name_ar"]
	priceCol, okPrice := col["sell_price"]
	if !okID || !okName || !okPrice {
		return nil, fmt.Errorf("missing required columns, got %v", header)
	}

	var products []Product
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		p := Product{ID: rec[idCol], Name: strings.TrimSpace(rec[nameCol]), Price: strings.TrimSpace(rec[priceCol])}
		if p.Name == "" {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func (c *Catalog) Len() int { return len(c.products) }

// Excerpt renders the first n products, one line each, for prompt assembly.
// n <= 0 renders the full catalog.
func (c *Catalog) Excerpt(n int) string {
	if n <= 0 || n > len(c.products) {
		n = len(c.products)
	}
	lines := make([]string, 0, n)
	for _, p := range c.products[:n] {
		lines = append(lines, fmt.Sprintf("• %s | %s جنيه | %s%s", p.Name, p.Price, c.linkBase, p.ID))
	}
	return strings.Join(lines, "\n")
}
