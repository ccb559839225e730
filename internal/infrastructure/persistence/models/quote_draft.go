package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
)

// QuoteDraftModel is the persisted form of one quote draft. Items holds the
// JSON-encoded draft lines; Version guards concurrent writers.
type QuoteDraftModel struct {
	DraftKey  string    `gorm:"column:draft_key;primaryKey;size:255"`
	Items     string    `gorm:"type:text;not null"`
	Version   int       `gorm:"not null;default:1"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (QuoteDraftModel) TableName() string {
	return "quote_drafts"
}

// ToDomain decodes the stored draft lines
func (m *QuoteDraftModel) ToDomain() ([]quote.DraftLineItem, error) {
	if m.Items == "" {
		return nil, nil
	}
	var items []quote.DraftLineItem
	if err := json.Unmarshal([]byte(m.Items), &items); err != nil {
		return nil, fmt.Errorf("decode quote draft %q: %w", m.DraftKey, err)
	}
	return items, nil
}

// EncodeDraftItems encodes draft lines for the Items column
func EncodeDraftItems(items []quote.DraftLineItem) (string, error) {
	if items == nil {
		items = []quote.DraftLineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode quote draft: %w", err)
	}
	return string(data), nil
}
