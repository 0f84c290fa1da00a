package indexer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kailas-cloud/vitrine/internal/domain/opt"
	"github.com/kailas-cloud/vitrine/internal/domain/product"
)

// CSV columns of the fashion catalog export. Price, Brand, Description, InStock and
// Popularity are optional.
const (
	colProductID   = "ProductId"
	colGender      = "Gender"
	colCategory    = "Category"
	colSubCategory = "SubCategory"
	colProductType = "ProductType"
	colColour      = "Colour"
	colUsage       = "Usage"
	colTitle       = "ProductTitle"
	colImage       = "Image"
	colImageURL    = "ImageURL"
	colPrice       = "Price"
	colBrand       = "Brand"
	colDescription = "Description"
	colInStock     = "InStock"
	colPopularity  = "Popularity"
)

var requiredColumns = []string{colTitle, colImage}

// Record is one parsed catalog row.
type Record struct {
	Product    product.Product
	ImageName  string
	Popularity opt.Value[int64]
}

// reader decodes catalog rows from CSV.
type reader struct {
	csv  *csv.Reader
	cols map[string]int
	line int
	now  func() time.Time
}

func newReader(r io.Reader, now func() time.Time) (*reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("missing required column %q", c)
		}
	}
	return &reader{csv: cr, cols: cols, line: 1, now: now}, nil
}

// next returns the next record. A malformed row yields a rowError and reading may continue.
func (r *reader) next() (Record, error) {
	fields, err := r.csv.Read()
	r.line++
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			return Record{}, &rowError{line: r.line, err: err}
		}
		return Record{}, fmt.Errorf("read csv: %w", err)
	}

	rec, err := r.parse(fields)
	if err != nil {
		return Record{}, &rowError{line: r.line, err: err}
	}
	return rec, nil
}

func (r *reader) get(fields []string, col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func (r *reader) parse(fields []string) (Record, error) {
	image := r.get(fields, colImage)
	id := r.get(fields, colProductID)
	if id == "" {
		id = strings.TrimSuffix(image, filepath.Ext(image))
	}

	price := decimal.Zero
	if s := r.get(fields, colPrice); s != "" {
		p, err := decimal.NewFromString(s)
		if err != nil {
			return Record{}, fmt.Errorf("price %q: %w", s, err)
		}
		price = p
	}

	inStock := true
	if s := r.get(fields, colInStock); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Record{}, fmt.Errorf("in stock %q: %w", s, err)
		}
		inStock = b
	}

	popularity := opt.None[int64]()
	if s := r.get(fields, colPopularity); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Record{}, fmt.Errorf("popularity %q: %w", s, err)
		}
		popularity = opt.Some(n)
	}

	p, err := product.New(id, product.Attributes{
		Title:       r.get(fields, colTitle),
		Description: r.get(fields, colDescription),
		Gender:      r.get(fields, colGender),
		Category:    r.get(fields, colCategory),
		SubCategory: r.get(fields, colSubCategory),
		ProductType: r.get(fields, colProductType),
		Colour:      r.get(fields, colColour),
		Brand:       r.get(fields, colBrand),
		Usage:       r.get(fields, colUsage),
	}, price, inStock, r.now().UTC(), product.NewImage(r.get(fields, colImageURL)))
	if err != nil {
		return Record{}, fmt.Errorf("product %q: %w", id, err)
	}

	return Record{Product: p, ImageName: image, Popularity: popularity}, nil
}

type rowError struct {
	line int
	err  error
}

func (e *rowError) Error() string { return fmt.Sprintf("line %d: %v", e.line, e.err) }

func (e *rowError) Unwrap() error { return e.err }
