package httpapi

import (
	"bytes"
	"encoding/csv"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"stockledger/backend/internal/domain"
)

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
	"stamp": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
}

// billHTMLTmpl renders printable bills. html/template escapes every field.
var billHTMLTmpl = template.Must(template.New("bill").Funcs(templateFuncs).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Bill {{.Number}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
  </style>
</head>
<body>
  <h2>Bill {{.Number}}</h2>
  <p>Store: {{.StoreID}} | Cashier: {{.CreatedBy}} | {{stamp .CreatedAt}}</p>
  <table>
    <thead><tr><th>Product</th><th>Qty</th><th>Unit price</th><th>Total</th></tr></thead>
    <tbody>{{range .Items}}<tr><td>{{.Name}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.UnitPrice.StringFixed 2}}</td><td class="num">{{.LineTotal.StringFixed 2}}</td></tr>{{end}}</tbody>
    <tfoot><tr><th colspan="3">Total</th><th class="num">{{.Total.StringFixed 2}}</th></tr></tfoot>
  </table>
</body>
</html>
`))

var ledgerHTMLTmpl = template.Must(template.New("ledger").Funcs(templateFuncs).Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Ledger {{.StoreID}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Store ledger {{.StoreID}}</h2>
  <p>Owner: {{.Owner}} | Generated {{stamp .GeneratedAt}}</p>

  <h3>Stock</h3>
  <table>
    <thead><tr><th>SKU</th><th>Product</th><th>In stock</th><th>Expired</th><th>Price</th></tr></thead>
    <tbody>{{range .Products}}<tr><td>{{.SKU}}</td><td>{{.Name}}</td><td>{{.TotalStock}}</td><td>{{.ExpiredStock}}</td><td>{{.CurrentPrice.StringFixed 2}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Batches</h3>
  <table>
    <thead><tr><th>Batch</th><th>SKU</th><th>Qty</th><th>Expires</th><th>Source</th></tr></thead>
    <tbody>{{range .Batches}}<tr><td>{{.ID}}</td><td>{{.SKU}}</td><td>{{.Quantity}}</td><td>{{date .ExpiryDate}}</td><td>{{.SourceType}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Recent bills</h3>
  <table>
    <thead><tr><th>Number</th><th>Total</th><th>At</th></tr></thead>
    <tbody>{{range .RecentBills}}<tr><td>{{.Number}}</td><td>{{.Total.StringFixed 2}}</td><td>{{stamp .CreatedAt}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Open orders</h3>
  <table>
    <thead><tr><th>Order</th><th>SKU</th><th>Requested</th><th>Status</th></tr></thead>
    <tbody>{{range .OpenOrders}}<tr><td>{{.ID}}</td><td>{{.SKU}}</td><td>{{.RequestedQty}}</td><td>{{.Status}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

const renderErrorPage = "<!doctype html><html><body><p>Rendering error.</p></body></html>"

func billToPrintableHTML(bill domain.Bill) string {
	var buf bytes.Buffer
	if err := billHTMLTmpl.Execute(&buf, bill); err != nil {
		return renderErrorPage
	}
	return buf.String()
}

func ledgerToHTML(view domain.LedgerView) string {
	var buf bytes.Buffer
	if err := ledgerHTMLTmpl.Execute(&buf, view); err != nil {
		return renderErrorPage
	}
	return buf.String()
}

// billsToCSV writes one row per bill line.
func billsToCSV(bills []domain.Bill) ([]byte, error) {
	var buf bytes.Buffer
	out := csv.NewWriter(&buf)
	if err := out.Write([]string{"bill_number", "store_id", "created_at", "sku", "product_name", "quantity", "unit_price", "line_total", "bill_total"}); err != nil {
		return nil, err
	}
	for _, bill := range bills {
		for _, item := range bill.Items {
			record := []string{
				bill.Number,
				bill.StoreID,
				bill.CreatedAt.UTC().Format(time.RFC3339),
				item.SKU,
				item.Name,
				strconv.Itoa(item.Quantity),
				item.UnitPrice.StringFixed(2),
				item.LineTotal.StringFixed(2),
				bill.Total.StringFixed(2),
			}
			if err := out.Write(record); err != nil {
				return nil, err
			}
		}
	}
	out.Flush()
	return buf.Bytes(), out.Error()
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
