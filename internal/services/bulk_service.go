package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"order_manager/internal/apperrors"
	"order_manager/internal/models"
	"order_manager/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	exportSheet = "Orders"
	exportDate  = "2006-01-02"
)

// bulkColumn maps one spreadsheet column to the order or product field it holds.
type bulkColumn struct {
	header     string
	orderLevel bool
	width      float64
	get        func(o *models.Order, p *models.Product) interface{}
	set        func(in *CreateOrderInput, p *ProductInput, cell string) error
}

// textCol builds an order-level text column. A nil set makes the column
// export-only.
func textCol(header string, width float64, get func(o *models.Order) string, set func(in *CreateOrderInput, s string)) bulkColumn {
	c := bulkColumn{
		header:     header,
		orderLevel: true,
		width:      width,
		get:        func(o *models.Order, _ *models.Product) interface{} { return get(o) },
	}
	if set != nil {
		c.set = func(in *CreateOrderInput, _ *ProductInput, cell string) error {
			set(in, cell)
			return nil
		}
	}
	return c
}

func numberCol(header string, get func(o *models.Order) float64, set func(in *CreateOrderInput, n Number)) bulkColumn {
	return bulkColumn{
		header:     header,
		orderLevel: true,
		width:      12,
		get:        func(o *models.Order, _ *models.Product) interface{} { return get(o) },
		set: func(in *CreateOrderInput, _ *ProductInput, cell string) error {
			n, err := cellNumber(cell)
			if err != nil {
				return err
			}
			set(in, n)
			return nil
		},
	}
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(exportDate)
}

var bulkColumns = []bulkColumn{
	textCol("Order ID", 14, func(o *models.Order) string { return o.OrderID }, nil),
	textCol("SO Date", 12, func(o *models.Order) string { return formatDate(&o.SODate) }, func(in *CreateOrderInput, s string) { in.SODate = s }),
	textCol("Order Type", 10, func(o *models.Order) string { return o.OrderType }, func(in *CreateOrderInput, s string) { in.OrderType = s }),
	textCol("Customer Name", 24, func(o *models.Order) string { return o.Customername }, func(in *CreateOrderInput, s string) { in.Customername = FlexString(s) }),
	textCol("Contact Person", 18, func(o *models.Order) string { return o.Name }, func(in *CreateOrderInput, s string) { in.Name = FlexString(s) }),
	textCol("Contact No", 14, func(o *models.Order) string { return o.ContactNo }, func(in *CreateOrderInput, s string) { in.ContactNo = FlexString(s) }),
	textCol("Alternate No", 14, func(o *models.Order) string { return o.AlterNo }, func(in *CreateOrderInput, s string) { in.AlterNo = FlexString(s) }),
	textCol("Customer Email", 24, func(o *models.Order) string { return o.CustomerEmail }, func(in *CreateOrderInput, s string) { in.CustomerEmail = FlexString(s) }),
	textCol("Shipping Address", 30, func(o *models.Order) string { return o.ShippingAddress }, func(in *CreateOrderInput, s string) { in.ShippingAddress = FlexString(s) }),
	textCol("Billing Address", 30, func(o *models.Order) string { return o.BillingAddress }, func(in *CreateOrderInput, s string) { in.BillingAddress = FlexString(s) }),
	textCol("City", 14, func(o *models.Order) string { return o.City }, func(in *CreateOrderInput, s string) { in.City = FlexString(s) }),
	textCol("State", 14, func(o *models.Order) string { return o.State }, func(in *CreateOrderInput, s string) { in.State = FlexString(s) }),
	textCol("Pin Code", 10, func(o *models.Order) string { return o.Pinselect }, func(in *CreateOrderInput, s string) { in.Pinselect = FlexString(s) }),
	textCol("GST No", 18, func(o *models.Order) string { return o.Gstno }, func(in *CreateOrderInput, s string) { in.Gstno = FlexString(s) }),
	textCol("Company", 14, func(o *models.Order) string { return o.Company }, func(in *CreateOrderInput, s string) { in.Company = s }),
	textCol("Dispatch From", 14, func(o *models.Order) string { return o.DispatchFrom }, func(in *CreateOrderInput, s string) { in.DispatchFrom = s }),
	textCol("Payment Method", 14, func(o *models.Order) string { return o.PaymentMethod }, func(in *CreateOrderInput, s string) { in.PaymentMethod = s }),
	textCol("Payment Terms", 14, func(o *models.Order) string { return o.PaymentTerms }, func(in *CreateOrderInput, s string) { in.PaymentTerms = s }),
	numberCol("Credit Days", func(o *models.Order) float64 { return float64(o.CreditDays) }, func(in *CreateOrderInput, n Number) { in.CreditDays = n }),
	numberCol("Freight Charges", func(o *models.Order) float64 { return o.Freightcs }, func(in *CreateOrderInput, n Number) { in.Freightcs = n }),
	numberCol("Installation Charges", func(o *models.Order) float64 { return o.Installation }, func(in *CreateOrderInput, n Number) { in.Installation = n }),
	textCol("Installation Charges Status", 16, func(o *models.Order) string { return o.InstallChargesStatus }, func(in *CreateOrderInput, s string) { in.InstallChargesStatus = s }),
	textCol("GEM Order Number", 18, func(o *models.Order) string { return o.GemOrderNumber }, func(in *CreateOrderInput, s string) { in.GemOrderNumber = FlexString(s) }),
	textCol("Demo Date", 12, func(o *models.Order) string { return formatDate(o.DemoDate) }, func(in *CreateOrderInput, s string) { in.DemoDate = s }),
	{
		header: "Product Type", width: 14,
		get: func(_ *models.Order, p *models.Product) interface{} { return p.ProductType },
		set: func(_ *CreateOrderInput, p *ProductInput, s string) error { p.ProductType = s; return nil },
	},
	{
		header: "Size", width: 8,
		get: func(_ *models.Order, p *models.Product) interface{} { return p.Size },
		set: func(_ *CreateOrderInput, p *ProductInput, s string) error { p.Size = s; return nil },
	},
	{
		header: "Spec", width: 16,
		get: func(_ *models.Order, p *models.Product) interface{} { return p.Spec },
		set: func(_ *CreateOrderInput, p *ProductInput, s string) error { p.Spec = s; return nil },
	},
	{
		header: "Quantity", width: 10,
		get: func(_ *models.Order, p *models.Product) interface{} { return p.Qty },
		set: func(_ *CreateOrderInput, p *ProductInput, s string) (err error) {
			p.Qty, err = cellNumber(s)
			return err
		},
	},
	{
		header: "Unit Price", width: 12,
		get: func(_ *models.Order, p *models.Product) interface{} { return p.UnitPrice },
		set: func(_ *CreateOrderInput, p *ProductInput, s string) (err error) {
			p.UnitPrice, err = cellNumber(s)
			return err
		},
	},
	{
		header: "GST", width: 10,
		get: func(_ *models.Order, p *models.Product) interface{} { return p.GST },
		set: func(_ *CreateOrderInput, p *ProductInput, s string) error { p.GST = FlexString(s); return nil },
	},
	{
		header: "Warranty", width: 12,
		get: func(_ *models.Order, p *models.Product) interface{} { return p.Warranty },
		set: func(_ *CreateOrderInput, p *ProductInput, s string) error { p.Warranty = s; return nil },
	},
	{
		header: "Brand", width: 12,
		get: func(_ *models.Order, p *models.Product) interface{} { return p.Brand },
		set: func(_ *CreateOrderInput, p *ProductInput, s string) error { p.Brand = s; return nil },
	},
	{
		header: "Model Nos", width: 18,
		get: func(_ *models.Order, p *models.Product) interface{} { return strings.Join(p.ModelNos, ", ") },
		set: func(_ *CreateOrderInput, p *ProductInput, s string) error { p.ModelNos = splitList(s); return nil },
	},
	{
		header: "Serial Nos", width: 18,
		get: func(_ *models.Order, p *models.Product) interface{} { return strings.Join(p.SerialNos, ", ") },
		set: func(_ *CreateOrderInput, p *ProductInput, s string) error { p.SerialNos = splitList(s); return nil },
	},
	numberCol("Total", func(o *models.Order) float64 { return o.Total }, func(in *CreateOrderInput, n Number) { in.Total = n }),
	numberCol("Payment Collected", func(o *models.Order) float64 { return o.PaymentCollected }, func(in *CreateOrderInput, n Number) { in.PaymentCollected = n }),
	numberCol("Payment Due", func(o *models.Order) float64 { return o.PaymentDue }, func(in *CreateOrderInput, n Number) { in.PaymentDue = n }),
	textCol("Sales Order Status", 18, func(o *models.Order) string { return o.Sostatus }, nil),
	textCol("Fulfilling Status", 16, func(o *models.Order) string { return o.FulfillingStatus }, nil),
	textCol("Dispatch Status", 16, func(o *models.Order) string { return o.DispatchStatus }, nil),
	textCol("Installation Status", 16, func(o *models.Order) string { return o.InstallationStatus }, nil),
	textCol("Bill Status", 14, func(o *models.Order) string { return o.BillStatus }, nil),
	textCol("Payment Received", 14, func(o *models.Order) string { return o.PaymentReceived }, nil),
	textCol("Dispatch Date", 12, func(o *models.Order) string { return formatDate(o.DispatchDate) }, nil),
	textCol("Stock Status", 12, func(o *models.Order) string { return o.StockStatus }, func(in *CreateOrderInput, s string) { in.StockStatus = s }),
	textCol("Remarks", 30, func(o *models.Order) string { return o.Remarks }, func(in *CreateOrderInput, s string) { in.Remarks = FlexString(s) }),
}

func cellNumber(cell string) (Number, error) {
	cell = strings.TrimSpace(strings.ReplaceAll(cell, ",", ""))
	if cell == "" {
		return Number{}, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return Number{}, fmt.Errorf("%q is not a number", cell)
	}
	return NewNumber(v), nil
}

type BulkService interface {
	Import(ctx context.Context, actor *models.User, r io.Reader) ([]models.Order, error)
	Export(ctx context.Context, actor *models.User) (*excelize.File, error)
}

type bulkService struct {
	store  repository.Store
	scoper Scoper
	ids    OrderIDGenerator
	fanout *Fanout
	log    *zap.Logger
	now    func() time.Time
}

func NewBulkService(store repository.Store, scoper Scoper, ids OrderIDGenerator, fanout *Fanout, log *zap.Logger) BulkService {
	return &bulkService{store: store, scoper: scoper, ids: ids, fanout: fanout, log: log, now: time.Now}
}

// ImportRow is echoed back when a row is rejected.
type ImportRow struct {
	Row    int               `json:"row"`
	Values map[string]string `json:"values"`
}

// Import creates one single-product order per data row. Every row is checked
// with the create rules first; one bad row rejects the whole file.
func (s *bulkService) Import(ctx context.Context, actor *models.User, r io.Reader) ([]models.Order, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.Parse("Unable to read spreadsheet", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, apperrors.Parse("Unable to read spreadsheet", err)
	}
	if len(rows) < 2 {
		return nil, apperrors.Validation("file", "Spreadsheet has no data rows")
	}

	index := make(map[int]bulkColumn)
	byHeader := make(map[string]bulkColumn, len(bulkColumns))
	for _, c := range bulkColumns {
		byHeader[strings.ToLower(c.header)] = c
	}
	for i, h := range rows[0] {
		if c, ok := byHeader[strings.ToLower(strings.TrimSpace(h))]; ok && c.set != nil {
			index[i] = c
		}
	}

	now := s.now()
	orders := make([]models.Order, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rowNum := i + 2
		echo := ImportRow{Row: rowNum, Values: make(map[string]string)}

		var in CreateOrderInput
		var item ProductInput
		var cellErr *apperrors.Error
		for col, cell := range row {
			c, ok := index[col]
			if !ok {
				continue
			}
			cell = strings.TrimSpace(cell)
			echo.Values[c.header] = cell
			if err := c.set(&in, &item, cell); err != nil && cellErr == nil {
				cellErr = apperrors.Validation(c.header, err.Error())
			}
		}
		if cellErr != nil {
			return nil, rowError(cellErr, echo)
		}

		order, err := buildOrder(in, []ProductInput{item}, actor, now)
		if err != nil {
			appErr := apperrors.FromPersistence(err)
			return nil, rowError(appErr, echo)
		}
		orders = append(orders, *order)
	}
	if len(orders) == 0 {
		return nil, apperrors.Validation("file", "Spreadsheet has no data rows")
	}

	for i := range orders {
		if orders[i].OrderID, err = s.ids.Next(ctx); err != nil {
			return nil, apperrors.Internal(err)
		}
	}

	notes := make([]*models.Notification, len(orders))
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Orders().CreateBatch(ctx, orders); err != nil {
			return err
		}
		for i := range orders {
			notes[i] = newNotification("imported", actor, &orders[i], now)
			if err := tx.Notifications().Create(ctx, notes[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.FromPersistence(err)
	}

	s.log.Info("orders imported", zap.Int("count", len(orders)), zap.String("actor", actor.Username))
	for i := range orders {
		s.fanout.OrderChanged(ctx, ChangeCreate, &orders[i], notes[i])
	}
	return orders, nil
}

func rowError(err *apperrors.Error, row ImportRow) *apperrors.Error {
	msg := fmt.Sprintf("Row %d: %s", row.Row, err.Message)
	out := apperrors.ValidationFields(msg, err.Fields)
	out.Err = err.Err
	return out.WithDetails(row)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Export writes one row per product. Order-level columns are filled only on
// the first row of each order.
func (s *bulkService) Export(ctx context.Context, actor *models.User) (*excelize.File, error) {
	scope, err := s.scoper.ScopeFor(ctx, actor)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	orders, err := s.store.Orders().Find(ctx, scope.OrderFilter(false))
	if err != nil {
		return nil, apperrors.FromPersistence(err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, apperrors.Internal(err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	header := make([]interface{}, len(bulkColumns))
	for i, c := range bulkColumns {
		header[i] = c.header
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(exportSheet, col, col, c.width)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, apperrors.Internal(err)
	}
	last, _ := excelize.ColumnNumberToName(len(bulkColumns))
	f.SetCellStyle(exportSheet, "A1", last+"1", headerStyle)

	row := 2
	for i := range orders {
		o := &orders[i]
		products := o.Products
		if len(products) == 0 {
			products = models.Products{{}}
		}
		for j := range products {
			values := exportRow(o, &products[j], j == 0)
			if err := f.SetSheetRow(exportSheet, fmt.Sprintf("A%d", row), &values); err != nil {
				return nil, apperrors.Internal(err)
			}
			row++
		}
	}
	return f, nil
}

func exportRow(o *models.Order, p *models.Product, first bool) []interface{} {
	values := make([]interface{}, len(bulkColumns))
	for i, c := range bulkColumns {
		if c.orderLevel && !first {
			values[i] = ""
			continue
		}
		values[i] = c.get(o, p)
	}
	return values
}
