package quote

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidOptionID is returned when an option id cannot be reduced to the
// canonical numeric attribute id.
var ErrInvalidOptionID = errors.New("invalid option id")

var attributeIDPattern = regexp.MustCompile(`^attribute\[(\d+)\]$`)

// OptionID is the canonical numeric attribute id of a product option.
type OptionID int64

// String returns the decimal form of the id
func (id OptionID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Attribute returns the wrapped "attribute[N]" form used by storefront forms
func (id OptionID) Attribute() string {
	return "attribute[" + id.String() + "]"
}

// OptionIDError describes a value that could not be parsed as an OptionID
type OptionIDError struct {
	Value string
}

func (e *OptionIDError) Error() string {
	return fmt.Sprintf("invalid option id %q", e.Value)
}

// Unwrap returns ErrInvalidOptionID
func (e *OptionIDError) Unwrap() error {
	return ErrInvalidOptionID
}

// ParseOptionID converts the wrapped "attribute[N]" form, a numeric string or a
// JSON number into an OptionID.
func ParseOptionID(v any) (OptionID, error) {
	switch t := v.(type) {
	case OptionID:
		return t, nil
	case int:
		return optionIDFromInt(int64(t), t)
	case int64:
		return optionIDFromInt(t, t)
	case float64:
		if t != float64(int64(t)) {
			return 0, &OptionIDError{Value: strconv.FormatFloat(t, 'f', -1, 64)}
		}
		return optionIDFromInt(int64(t), t)
	case json.Number:
		return parseOptionIDString(t.String())
	case string:
		return parseOptionIDString(t)
	case json.RawMessage:
		return parseOptionIDRaw(t)
	default:
		return 0, &OptionIDError{Value: fmt.Sprintf("%v", v)}
	}
}

func optionIDFromInt(n int64, original any) (OptionID, error) {
	if n < 0 {
		return 0, &OptionIDError{Value: fmt.Sprintf("%v", original)}
	}
	return OptionID(n), nil
}

func parseOptionIDString(s string) (OptionID, error) {
	s = strings.TrimSpace(s)
	if m := attributeIDPattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, &OptionIDError{Value: s}
	}
	return OptionID(n), nil
}

func parseOptionIDRaw(raw json.RawMessage) (OptionID, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseOptionIDString(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return parseOptionIDString(n.String())
	}
	return 0, &OptionIDError{Value: string(raw)}
}

// Option is one selected option id/value pair
type Option struct {
	OptionID    OptionID `json:"optionId"`
	OptionValue string   `json:"optionValue"`
}

// UnmarshalJSON accepts both numeric and "attribute[N]" ids and scalar values
func (o *Option) UnmarshalJSON(data []byte) error {
	var raw RawOption
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	opt, err := raw.Parse()
	if err != nil {
		return err
	}
	*o = opt
	return nil
}

// RawOption is an option as it arrives from a caller, before its id is parsed
type RawOption struct {
	OptionID    json.RawMessage `json:"optionId"`
	OptionValue string          `json:"optionValue"`
}

// UnmarshalJSON reads optionId verbatim and renders a scalar optionValue as text
func (r *RawOption) UnmarshalJSON(data []byte) error {
	var aux struct {
		OptionID    json.RawMessage `json:"optionId"`
		OptionValue json.RawMessage `json:"optionValue"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.OptionID = aux.OptionID
	r.OptionValue = scalarText(aux.OptionValue)
	return nil
}

// Parse resolves the raw id into a typed Option
func (r RawOption) Parse() (Option, error) {
	id, err := parseOptionIDRaw(r.OptionID)
	if err != nil {
		return Option{}, err
	}
	return Option{OptionID: id, OptionValue: r.OptionValue}, nil
}

// scalarText renders a JSON string, number or bool as plain text
func scalarText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// EncodeOptionList serializes options into the string form stored on draft lines
func EncodeOptionList(options []Option) string {
	if options == nil {
		options = []Option{}
	}
	b, _ := json.Marshal(options)
	return string(b)
}

// DecodeOptionList parses an option list stored on a draft line. An empty
// string decodes to an empty list.
func DecodeOptionList(s string) ([]Option, error) {
	if strings.TrimSpace(s) == "" {
		return []Option{}, nil
	}
	var options []Option
	if err := json.Unmarshal([]byte(s), &options); err != nil {
		return nil, fmt.Errorf("decode option list: %w", err)
	}
	return options, nil
}

// OptionParseError records a single malformed option string skipped by
// ParseOptionList
type OptionParseError struct {
	Index int
	Raw   string
	Err   error
}

func (e *OptionParseError) Error() string {
	return fmt.Sprintf("option %d %q: %v", e.Index, e.Raw, e.Err)
}

func (e *OptionParseError) Unwrap() error {
	return e.Err
}

// catalogOption is the per-option JSON carried on catalog variant rows
type catalogOption struct {
	OptionID    json.RawMessage `json:"option_id"`
	ValueID     json.RawMessage `json:"id"`
	AltOptionID json.RawMessage `json:"optionId"`
	AltValue    json.RawMessage `json:"optionValue"`
}

// ParseOptionList decodes the raw per-option JSON strings of a catalog row.
// A string that fails to parse is skipped and reported; it never aborts the row.
func ParseOptionList(raw []string) ([]Option, []*OptionParseError) {
	options := make([]Option, 0, len(raw))
	var skipped []*OptionParseError
	for i, s := range raw {
		var co catalogOption
		if err := json.Unmarshal([]byte(s), &co); err != nil {
			skipped = append(skipped, &OptionParseError{Index: i, Raw: s, Err: err})
			continue
		}
		idRaw, valueRaw := co.OptionID, co.ValueID
		if len(idRaw) == 0 {
			idRaw, valueRaw = co.AltOptionID, co.AltValue
		}
		if len(idRaw) == 0 || len(valueRaw) == 0 {
			skipped = append(skipped, &OptionParseError{Index: i, Raw: s, Err: errors.New("missing option id or value")})
			continue
		}
		id, err := parseOptionIDRaw(idRaw)
		if err != nil {
			skipped = append(skipped, &OptionParseError{Index: i, Raw: s, Err: err})
			continue
		}
		options = append(options, Option{OptionID: id, OptionValue: scalarText(valueRaw)})
	}
	return options, skipped
}
