package csvimport

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
)

// Quick-order columns
const (
	ColumnSKU = "sku"
	ColumnQty = "qty"
)

// DefaultMaxQuantity caps a single row's quantity when no limit is configured
const DefaultMaxQuantity = 1_000_000

var quickOrderAliases = map[string]string{
	"variant_sku": ColumnSKU,
	"variant sku": ColumnSKU,
	"quantity":    ColumnQty,
}

// QuickOrderOptions limits what an upload may contain. Zero values mean the
// defaults.
type QuickOrderOptions struct {
	MaxRows     int
	MaxErrors   int
	MaxQuantity int
}

// QuickOrder is a parsed quick-order upload. Rows repeating a SKU
// (case-insensitively) are summed into the first occurrence.
type QuickOrder struct {
	// SKUs lists each distinct SKU once, in first-seen order and casing
	SKUs        []string
	Quantities  map[string]int
	TotalRows   int
	Errors      []RowError
	TotalErrors int
	IsTruncated bool
}

// ParseQuickOrder reads a sku,qty CSV upload. Structural problems with the
// file are returned as errors; problems with individual rows are collected
// in the result and the row is skipped.
func ParseQuickOrder(r io.Reader, opts QuickOrderOptions, parserOpts ...ParserOption) (*QuickOrder, error) {
	maxQty := opts.MaxQuantity
	if maxQty <= 0 {
		maxQty = DefaultMaxQuantity
	}

	parser, err := NewCSVParser(r, append([]ParserOption{WithHeaderAliases(quickOrderAliases)}, parserOpts...)...)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := parser.MissingHeaders(ColumnSKU, ColumnQty); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing column(s) %s", ErrMissingHeader, strings.Join(missing, ", "))
	}

	rowErrors := NewErrorCollection(opts.MaxErrors)
	minQty, maxQtyDec := decimal.NewFromInt(1), decimal.NewFromInt(int64(maxQty))
	validator := NewFieldValidator([]FieldRule{
		Field(ColumnSKU).Required().MaxLength(255).Build(),
		Field(ColumnQty).Required().Int().Range(&minQty, &maxQtyDec).Build(),
	}, rowErrors)

	order := &QuickOrder{SKUs: []string{}, Quantities: make(map[string]int)}
	firstSpelling := make(map[string]string)
	for {
		row, err := parser.ReadRow()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rowErrors.Add(RowError{
				Row:     parser.CurrentRow(),
				Code:    ErrCodeImportMalformedRow,
				Message: err.Error(),
			})
			continue
		}
		if row.IsEmpty() {
			continue
		}
		order.TotalRows++
		if opts.MaxRows > 0 && order.TotalRows > opts.MaxRows {
			return nil, fmt.Errorf("%w: limit is %d", ErrTooManyRows, opts.MaxRows)
		}
		if !validator.ValidateRow(row) {
			continue
		}

		sku := row.Get(ColumnSKU)
		qty, _ := strconv.Atoi(row.Get(ColumnQty))
		key := quote.FoldSKU(sku)
		if first, ok := firstSpelling[key]; ok {
			order.Quantities[first] += qty
			continue
		}
		firstSpelling[key] = sku
		order.SKUs = append(order.SKUs, sku)
		order.Quantities[sku] = qty
	}

	if order.TotalRows == 0 && !rowErrors.HasErrors() {
		return nil, ErrNoDataRows
	}
	order.Errors = rowErrors.Errors()
	order.TotalErrors = rowErrors.TotalCount()
	order.IsTruncated = rowErrors.IsTruncated()
	return order, nil
}
