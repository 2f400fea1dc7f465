package services

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"order_manager/internal/apperrors"
	"order_manager/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func newBulk(h *harness) BulkService {
	log := zap.NewNop()
	return NewBulkService(h.store, NewScoper(h.store.users), &fixedIDs{n: 100}, NewFanout(h.emitter, nil, log), log)
}

func sheet(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newHarness(t)
	ctx := context.Background()
	in := orderInput(t)
	in.Gstno = "07AAACA1234A1Z5"
	_, err := src.svc.CreateOrder(ctx, src.sales, in, "")
	require.NoError(t, err)

	f, err := newBulk(src).Export(ctx, src.admin)
	require.NoError(t, err)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Order ID", rows[0][0])
	assert.Equal(t, "PMTO0001", rows[1][0])

	dst := newHarness(t)
	imported, err := newBulk(dst).Import(ctx, dst.member, buf)
	require.NoError(t, err)
	require.Len(t, imported, 1)

	got := imported[0]
	assert.Equal(t, "PMTO0101", got.OrderID)
	assert.Equal(t, dst.member.ID, got.CreatedBy)
	assert.Equal(t, "Acme School", got.Customername)
	assert.Equal(t, "07AAACA1234A1Z5", got.Gstno)
	assert.Equal(t, "Delhi", got.DispatchFrom)
	assert.Equal(t, 306.0, got.Total)
	assert.Equal(t, 206.0, got.PaymentDue)
	require.Len(t, got.Products, 1)
	assert.Equal(t, 2, got.Products[0].Qty)
	assert.Equal(t, "18", got.Products[0].GST)
	assert.Equal(t, models.SOStatusPending, got.Sostatus, "workflow state is not imported")

	assert.Len(t, dst.store.orders.byID, 1)
	require.Len(t, dst.store.notifications.items, 1)
	assert.Contains(t, dst.store.notifications.items[0].Message, "imported by member")
	assert.Equal(t, []string{EventNewOrder, EventNotification}, dst.emitter.names())
}

func TestImportRejectsFileOnFirstBadRow(t *testing.T) {
	h := newHarness(t)
	buf := sheet(t, [][]interface{}{
		{"Customer Name", "Order Type", "Payment Terms", "Product Type", "Quantity", "Unit Price", "GST"},
		{"Good School", "B2C", "Advance", "Panel", 1, 100, "18"},
		{"Gov School", "B2G", "", "Panel", 1, 100, "18"},
		{"Bad School", "B2C", "Advance", "Panel", "many", 100, "18"},
	})

	_, err := newBulk(h).Import(context.Background(), h.sales, buf)
	require.Error(t, err)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)
	assert.Contains(t, appErr.Message, "Row 3")
	row, ok := appErr.Details.(ImportRow)
	require.True(t, ok)
	assert.Equal(t, 3, row.Row)
	assert.Equal(t, "Gov School", row.Values["Customer Name"])
	assert.Equal(t, "gemOrderNumber", appErr.Fields[0].Field)

	assert.Empty(t, h.store.orders.byID)
	assert.Empty(t, h.emitter.events)
}

func TestImportCellErrors(t *testing.T) {
	h := newHarness(t)
	buf := sheet(t, [][]interface{}{
		{"Customer Name", "Payment Terms", "Product Type", "Quantity", "Unit Price", "GST"},
		{"", "", "", "", "", ""},
		{"Bad School", "Advance", "Panel", "many", 100, "18"},
	})

	_, err := newBulk(h).Import(context.Background(), h.sales, buf)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "Quantity", appErr.Fields[0].Field)
	assert.Equal(t, 3, appErr.Details.(ImportRow).Row)
}

func TestImportEmptyOrUnreadable(t *testing.T) {
	h := newHarness(t)

	_, err := newBulk(h).Import(context.Background(), h.sales, sheet(t, [][]interface{}{{"Customer Name"}}))
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, "file", appErr.Fields[0].Field)

	_, err = newBulk(h).Import(context.Background(), h.sales, bytes.NewBufferString("not a spreadsheet"))
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)
}

func TestExportOneRowPerProduct(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	in := orderInput(t)
	in.Products = raw(t, []map[string]interface{}{
		{"productType": "Panel", "qty": 1, "unitPrice": 10, "gst": 18},
		{"productType": "IFPD", "qty": 1, "unitPrice": 10, "gst": 18, "brand": "Promark", "modelNos": "PM-65, PM-75"},
	})
	_, err := h.svc.CreateOrder(ctx, h.sales, in, "")
	require.NoError(t, err)

	f, err := newBulk(h).Export(ctx, h.other)
	require.NoError(t, err)
	rows, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "orders outside the scope are not exported")

	f, err = newBulk(h).Export(ctx, h.sales)
	require.NoError(t, err)
	rows, err = f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "PMTO0001", rows[1][0])
	assert.Equal(t, "", rows[2][0])

	header := rows[0]
	col := -1
	for i, h := range header {
		if h == "Model Nos" {
			col = i
		}
	}
	require.NotEqual(t, -1, col)
	assert.Equal(t, "PM-65, PM-75", rows[2][col])
}
