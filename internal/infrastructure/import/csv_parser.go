package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// utf8BOM is stripped from the start of uploaded files
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVParser reads an uploaded CSV file row by row, mapping fields to
// canonical column names
type CSVParser struct {
	delimiter  rune
	lazyQuotes bool
	aliases    map[string]string
	headerMap  map[string]int
	headers    []string
	currentRow int
	totalRows  int
	reader     *csv.Reader
}

// ParserOption is a functional option for CSVParser configuration
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// WithLazyQuotes enables lazy quote handling
func WithLazyQuotes(lazy bool) ParserOption {
	return func(p *CSVParser) {
		p.lazyQuotes = lazy
	}
}

// WithHeaderAliases maps alternative header spellings to a canonical column.
// Keys are matched case-insensitively.
func WithHeaderAliases(aliases map[string]string) ParserOption {
	return func(p *CSVParser) {
		for alias, canonical := range aliases {
			p.aliases[normalizeHeader(alias)] = canonical
		}
	}
}

// NewCSVParser creates a new CSV parser from a reader. The input must be
// UTF-8; a leading byte order mark is discarded.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	parser := &CSVParser{
		delimiter:  ',',
		lazyQuotes: true,
		aliases:    make(map[string]string),
		headerMap:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(parser)
	}

	// Wrap in buffered reader for BOM detection
	br := bufio.NewReader(r)
	// Detect and strip UTF-8 BOM
	head, err := br.Peek(len(utf8BOM))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if bytes.Equal(head, utf8BOM) {
		// Discard BOM
		_, _ = br.Discard(len(utf8BOM))
	}
	// Validate encoding is UTF-8
	if err := validateUTF8(br); err != nil {
		return nil, err
	}

	// Create CSV reader
	parser.reader = csv.NewReader(br)
	parser.reader.Comma = parser.delimiter
	parser.reader.LazyQuotes = parser.lazyQuotes
	parser.reader.TrimLeadingSpace = true
	parser.reader.FieldsPerRecord = -1

	return parser, nil
}

// ParseFromBytes creates a parser from a byte slice
func ParseFromBytes(data []byte, opts ...ParserOption) (*CSVParser, error) {
	return NewCSVParser(bytes.NewReader(data), opts...)
}

func validateUTF8(r *bufio.Reader) error {
	const checkSize = 4096
	// Peek enough bytes to check for valid UTF-8
	content, err := r.Peek(checkSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return ErrEmptyFile
	}
	// a multi-byte rune may straddle the peek window
	if len(content) == checkSize {
		for i := len(content) - 1; i >= 0 && i >= len(content)-utf8.UTFMax; i-- {
			if utf8.RuneStart(content[i]) {
				if !utf8.FullRune(content[i:]) {
					content = content[:i]
				}
				break
			}
		}
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// ParseHeader reads the header row. Header names are lower-cased and aliases
// are resolved; the first occurrence of a repeated column wins.
func (p *CSVParser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	p.headers = make([]string, len(record))
	for i, h := range record {
		name := normalizeHeader(h)
		if canonical, ok := p.aliases[name]; ok {
			name = canonical
		}
		p.headers[i] = name
		if _, seen := p.headerMap[name]; !seen && name != "" {
			p.headerMap[name] = i
		}
	}
	if len(p.headerMap) == 0 {
		return ErrMissingHeader
	}

	p.currentRow = 1
	return nil
}

// Headers returns the canonical header names in file order
func (p *CSVParser) Headers() []string {
	return p.headers
}

// HasHeader checks if a canonical column exists
func (p *CSVParser) HasHeader(name string) bool {
	_, ok := p.headerMap[name]
	return ok
}

// MissingHeaders returns the required columns absent from the header row
func (p *CSVParser) MissingHeaders(required ...string) []string {
	var missing []string
	for _, h := range required {
		if !p.HasHeader(h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one parsed data row
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value of a canonical column
func (r *Row) Get(column string) string {
	return r.Data[column]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow reads the next row. It returns io.EOF after the last row.
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			p.currentRow = parseErr.StartLine
		} else {
			p.currentRow++
		}
		return nil, fmt.Errorf("error reading row %d: %w", p.currentRow, err)
	}
	// blank lines are skipped by the reader, so track the file line
	p.currentRow, _ = p.reader.FieldPos(0)
	p.totalRows++

	// Map fields to headers
	row := &Row{
		LineNumber: p.currentRow,
		Data:       make(map[string]string, len(p.headerMap)),
	}
	for name, i := range p.headerMap {
		if i < len(record) {
			row.Data[name] = strings.TrimSpace(record[i])
		} else {
			row.Data[name] = ""
		}
	}
	return row, nil
}

// CurrentRow returns the file line of the last row read
func (p *CSVParser) CurrentRow() int {
	return p.currentRow
}

// TotalRows returns the total number of data rows read
func (p *CSVParser) TotalRows() int {
	return p.totalRows
}
