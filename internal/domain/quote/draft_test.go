package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareOption(t *testing.T) {
	red := []Option{{OptionID: 1, OptionValue: "red"}}
	blue := []Option{{OptionID: 1, OptionValue: "blue"}}
	redWithBlankEngraving := []Option{{OptionID: 1, OptionValue: "red"}, {OptionID: 2, OptionValue: ""}}
	redWithEngraving := []Option{{OptionID: 1, OptionValue: "red"}, {OptionID: 2, OptionValue: "hi"}}

	tests := []struct {
		name    string
		longer  []Option
		shorter []Option
		want    bool
	}{
		{"identical", red, red, true},
		{"different value", red, blue, false},
		{"extra empty option", redWithBlankEngraving, red, true},
		{"extra filled option", redWithEngraving, red, false},
		{"both empty", nil, nil, true},
		{"empty against blank", []Option{{OptionID: 3, OptionValue: ""}}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareOption(tt.longer, tt.shorter))
		})
	}

	t.Run("reflexive", func(t *testing.T) {
		for _, opts := range [][]Option{red, blue, redWithBlankEngraving, redWithEngraving} {
			assert.True(t, CompareOption(opts, opts))
		}
	})

	t.Run("EquivalentOptions orders arguments", func(t *testing.T) {
		assert.True(t, EquivalentOptions(red, redWithBlankEngraving))
		assert.True(t, EquivalentOptions(redWithBlankEngraving, red))
		assert.False(t, EquivalentOptions(red, redWithEngraving))
	})
}

func draftLine(sku string, qty int, options []Option) DraftLineItem {
	return DraftLineItem{Node: DraftNode{
		ID:         sku + "-line",
		VariantSKU: sku,
		Quantity:   qty,
		OptionList: EncodeOptionList(options),
	}}
}

func TestMergeDraftLine(t *testing.T) {
	red := []Option{{OptionID: 1, OptionValue: "red"}}
	blue := []Option{{OptionID: 1, OptionValue: "blue"}}

	t.Run("equivalent options increment quantity", func(t *testing.T) {
		items := []DraftLineItem{draftLine("SKU-1", 2, red)}

		got, outcome := MergeDraftLine(items, DraftLineItem{Node: DraftNode{VariantSKU: "SKU-1"}}, 3, red)

		assert.Equal(t, OutcomeMerged, outcome)
		require.Len(t, got, 1)
		assert.Equal(t, 5, got[0].Node.Quantity)
		assert.Equal(t, "SKU-1-line", got[0].Node.ID)
	})

	t.Run("different options append a new line", func(t *testing.T) {
		items := []DraftLineItem{draftLine("SKU-1", 1, red)}

		got, outcome := MergeDraftLine(items, DraftLineItem{Node: DraftNode{VariantSKU: "SKU-1"}}, 1, blue)

		assert.Equal(t, OutcomeAppended, outcome)
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].Node.Quantity)
		assert.Equal(t, 1, got[1].Node.Quantity)
		assert.NotEmpty(t, got[1].Node.ID)
		opts, err := got[1].Node.Options()
		require.NoError(t, err)
		assert.Equal(t, blue, opts)
	})

	t.Run("different sku appends", func(t *testing.T) {
		items := []DraftLineItem{draftLine("SKU-1", 1, red)}

		got, outcome := MergeDraftLine(items, DraftLineItem{Node: DraftNode{VariantSKU: "SKU-2"}}, 4, red)

		assert.Equal(t, OutcomeAppended, outcome)
		require.Len(t, got, 2)
		assert.Equal(t, 4, got[1].Node.Quantity)
	})

	t.Run("matches a later line with the same sku", func(t *testing.T) {
		items := []DraftLineItem{draftLine("SKU-1", 1, red), draftLine("SKU-1", 7, blue)}
		items[1].Node.ID = "blue-line"

		got, outcome := MergeDraftLine(items, DraftLineItem{Node: DraftNode{VariantSKU: "SKU-1"}}, 2, blue)

		assert.Equal(t, OutcomeMerged, outcome)
		require.Len(t, got, 2)
		assert.Equal(t, 1, got[0].Node.Quantity)
		assert.Equal(t, 9, got[1].Node.Quantity)
	})

	t.Run("keeps a caller supplied id", func(t *testing.T) {
		got, _ := MergeDraftLine(nil, DraftLineItem{Node: DraftNode{ID: "given", VariantSKU: "X"}}, 1, nil)
		require.Len(t, got, 1)
		assert.Equal(t, "given", got[0].Node.ID)
		assert.Equal(t, "[]", got[0].Node.OptionList)
	})

	t.Run("corrupt stored options never merge", func(t *testing.T) {
		items := []DraftLineItem{{Node: DraftNode{ID: "bad", VariantSKU: "SKU-1", Quantity: 1, OptionList: "{oops"}}}

		got, outcome := MergeDraftLine(items, DraftLineItem{Node: DraftNode{VariantSKU: "SKU-1"}}, 1, nil)

		assert.Equal(t, OutcomeAppended, outcome)
		assert.Len(t, got, 2)
	})

	t.Run("no two lines share sku and equivalent options", func(t *testing.T) {
		var items []DraftLineItem
		for _, opts := range [][]Option{red, blue, red, nil, blue, nil} {
			items, _ = MergeDraftLine(items, DraftLineItem{Node: DraftNode{VariantSKU: "SKU-1"}}, 1, opts)
		}
		require.Len(t, items, 3)
		for i := range items {
			for j := i + 1; j < len(items); j++ {
				a, _ := items[i].Node.Options()
				b, _ := items[j].Node.Options()
				assert.False(t, EquivalentOptions(a, b), "lines %d and %d are equivalent", i, j)
			}
		}
	})
}

func TestCloneDraftLines(t *testing.T) {
	assert.Nil(t, CloneDraftLines(nil))

	src := []DraftLineItem{{Node: DraftNode{VariantSKU: "A1", Quantity: 2, ProductsSearch: []byte(`{"id":1}`)}}}
	clone := CloneDraftLines(src)
	clone[0].Node.Quantity = 9
	clone[0].Node.ProductsSearch[0] = '['

	assert.Equal(t, 2, src[0].Node.Quantity)
	assert.Equal(t, `{"id":1}`, string(src[0].Node.ProductsSearch))
}
