package services

import (
	"encoding/json"
	"testing"

	"order_manager/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotal(t *testing.T) {
	products := models.Products{
		{ProductType: "Panel", Qty: 2, UnitPrice: 100, GST: "18"},
	}
	assert.Equal(t, 306.0, ComputeTotal(products, 50, 20))

	products = append(products, models.Product{ProductType: "Stand", Qty: 3, UnitPrice: 33.33, GST: models.GSTIncluding})
	assert.Equal(t, 405.99, ComputeTotal(products, 50, 20))

	assert.Equal(t, 0.0, ComputeTotal(nil, 0, 0))
}

func TestComputeTotalMixedGST(t *testing.T) {
	products := models.Products{
		{ProductType: "Panel", Qty: 2, UnitPrice: 100, GST: "18"},
		{ProductType: "Stand", Qty: 1, UnitPrice: 50, GST: models.GSTIncluding},
	}
	assert.Equal(t, 306.0, ComputeTotal(products, 20, 0))
}

func TestPaymentDue(t *testing.T) {
	assert.Equal(t, 0.1, PaymentDue(0.3, 0.2))
	assert.Equal(t, -10.0, PaymentDue(90, 100))
}

func TestParseProducts(t *testing.T) {
	items, err := ParseProducts(json.RawMessage(`[{"productType":"Panel","qty":"2","unitPrice":10,"gst":"18"}]`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2.0, items[0].Qty.Value)

	items, err = ParseProducts(json.RawMessage(`"[{\"productType\":\"Panel\",\"qty\":1}]"`))
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, err = ParseProducts(nil)
	require.NoError(t, err)
	assert.Nil(t, items)

	_, err = ParseProducts(json.RawMessage(`{"productType":"Panel"}`))
	assert.Error(t, err)

	_, err = ParseProducts(json.RawMessage(`"not json"`))
	assert.Error(t, err)

	_, err = ParseProducts(json.RawMessage(`[{"qty":"two"}]`))
	assert.Error(t, err)
}

func TestNormalizeProducts(t *testing.T) {
	items := []ProductInput{
		{ProductType: "IFPD", Qty: NewNumber(1), UnitPrice: NewNumber(90000), GST: "INCLUDING", Brand: "Promark", ModelNos: StringList{"PM-75"}},
		{ProductType: "Panel", Qty: NewNumber(2), UnitPrice: NewNumber(0), GST: "18%"},
	}
	out, err := NormalizeProducts(items, models.OrderTypeB2B, false)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, models.GSTIncluding, out[0].GST)
	assert.Equal(t, WarrantyPromark, out[0].Warranty)
	assert.Equal(t, "18", out[1].GST)
	assert.Equal(t, WarrantyStandard, out[1].Warranty)
	assert.Equal(t, []string{}, out[1].SerialNos)
}

func TestNormalizeProductsRejectsWholeList(t *testing.T) {
	items := []ProductInput{
		{ProductType: "Panel", Qty: NewNumber(1), UnitPrice: NewNumber(10), GST: "18"},
		{ProductType: "Panel", Qty: NewNumber(1.5), UnitPrice: NewNumber(-1), GST: "abc"},
		{ProductType: "IFPD", Qty: NewNumber(1), UnitPrice: NewNumber(10), GST: "18"},
	}
	_, err := NormalizeProducts(items, models.OrderTypeB2C, false)
	require.Error(t, err)

	assert.ElementsMatch(t, []string{
		"products[1].qty",
		"products[1].unitPrice",
		"products[1].gst",
		"products[2].modelNos",
		"products[2].brand",
	}, fieldNames(err))
}

func TestDefaultWarranty(t *testing.T) {
	promark := models.Product{ProductType: models.ProductTypeIFPD, Brand: "promark"}
	assert.Equal(t, WarrantyTender, DefaultWarranty(models.OrderTypeB2G, promark))
	assert.Equal(t, WarrantyPromark, DefaultWarranty(models.OrderTypeB2C, promark))
	assert.Equal(t, WarrantyStandard, DefaultWarranty(models.OrderTypeB2C, models.Product{ProductType: "Panel", Brand: "Promark"}))
}

func TestProductsEqual(t *testing.T) {
	a := models.Products{{ProductType: "Panel", Qty: 1, UnitPrice: 5, GST: "18", SerialNos: []string{"S1"}}}
	b := models.Products{{ProductType: "Panel", Qty: 1, UnitPrice: 5, GST: "18", SerialNos: []string{"S1"}, Size: "55in"}}
	assert.True(t, ProductsEqual(a, b))

	b[0].SerialNos = []string{"S2"}
	assert.False(t, ProductsEqual(a, b))
	assert.False(t, ProductsEqual(a, nil))
}

func TestNumberDecoding(t *testing.T) {
	var in struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
		D Number `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12.5","b":null,"c":""}`), &in))
	assert.Equal(t, NewNumber(12.5), in.A)
	assert.False(t, in.B.Valid)
	assert.False(t, in.C.Valid)
	assert.False(t, in.D.Valid)
	assert.Equal(t, 7.0, in.D.Or(7))

	assert.Error(t, json.Unmarshal([]byte(`{"a":"twelve"}`), &in))
}

func TestStringListDecoding(t *testing.T) {
	var l StringList
	require.NoError(t, json.Unmarshal([]byte(`"A1, B2 ,,C3"`), &l))
	assert.Equal(t, StringList{"A1", "B2", "C3"}, l)

	require.NoError(t, json.Unmarshal([]byte(`["X", 42, ""]`), &l))
	assert.Equal(t, StringList{"X", "42"}, l)
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2024-03-15", "2024-03-15T10:30:00Z", "15/03/2024", "15-03-2024"} {
		d, ok := parseDate(s)
		require.True(t, ok, s)
		assert.Equal(t, 15, d.Day(), s)
	}
	_, ok := parseDate("")
	assert.False(t, ok)
	_, ok = parseDate("yesterday")
	assert.False(t, ok)
}
