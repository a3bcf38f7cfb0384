package order

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
)

// InvoiceLine is one rendered line item.
type InvoiceLine struct {
	Name          string
	Quantity      int
	SelectedColor string
	UnitPrice     int64
	LineTotal     int64
}

// InvoiceData is the view model for the invoice document.
type InvoiceData struct {
	InvoiceRef      string
	Date            time.Time
	CustomerName    string
	CustomerEmail   string
	ShippingAddress ShippingAddress
	Lines           []InvoiceLine
	TotalPrice      int64
	PaymentStatus   string
	DeliveryStatus  string
}

// RenderInvoice renders the order as an HTML invoice document. Pure read;
// works for unpaid orders (rendered "Unpaid", reference shown as a dash).
func (s *Service) RenderInvoice(ctx context.Context, id uuid.UUID) ([]byte, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	data := InvoiceData{
		InvoiceRef:      "—",
		Date:            order.CreatedAt,
		ShippingAddress: order.ShippingAddress,
		TotalPrice:      order.TotalPrice,
		PaymentStatus:   "Unpaid",
		DeliveryStatus:  order.DeliveryStatus,
	}
	if order.InvoiceRef != nil {
		data.InvoiceRef = *order.InvoiceRef
	}
	if order.IsPaid {
		data.PaymentStatus = "Paid"
		if order.PaidAt != nil {
			data.Date = *order.PaidAt
		}
	}

	if owner, err := s.users.GetByID(ctx, order.UserID); err == nil {
		data.CustomerName = owner.Username
		data.CustomerEmail = owner.Email
	} else {
		data.CustomerName = order.ShippingAddress.FullName
	}

	for _, item := range order.Items {
		name := item.Name
		if name == "" {
			name = item.ProductRef
		}
		data.Lines = append(data.Lines, InvoiceLine{
			Name:          name,
			Quantity:      item.Quantity,
			SelectedColor: item.SelectedColor,
			UnitPrice:     item.UnitPrice,
			LineTotal:     item.LineTotal(),
		})
	}

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	return buf.Bytes(), nil
}

var invoiceTemplate = template.Must(template.New("invoice").Parse(invoiceTemplateHTML))

const invoiceTemplateHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 700px; margin: 0 auto; padding: 24px; }
        table { width: 100%; border-collapse: collapse; margin-top: 16px; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid #ddd; }
        .total { font-weight: bold; }
        .meta { color: #666; font-size: 14px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Invoice {{.InvoiceRef}}</h1>
        <p class="meta">Date: {{.Date.Format "02 Jan 2006"}}</p>
        <p class="meta">Status: {{.PaymentStatus}} &middot; Delivery: {{.DeliveryStatus}}</p>

        <h3>Billed to</h3>
        <p>
            {{.CustomerName}}{{if .CustomerEmail}} ({{.CustomerEmail}}){{end}}<br>
            {{.ShippingAddress.FullName}}<br>
            {{.ShippingAddress.Address}}, {{.ShippingAddress.City}}{{if .ShippingAddress.PostalCode}} {{.ShippingAddress.PostalCode}}{{end}}<br>
            {{.ShippingAddress.Country}}
        </p>

        <table>
            <tr><th>Item</th><th>Qty</th><th>Variant</th><th>Unit price</th><th>Total</th></tr>
            {{range .Lines}}
            <tr>
                <td>{{.Name}}</td>
                <td>{{.Quantity}}</td>
                <td>{{.SelectedColor}}</td>
                <td>{{.UnitPrice}}</td>
                <td>{{.LineTotal}}</td>
            </tr>
            {{end}}
            <tr class="total"><td colspan="4">Grand total</td><td>{{.TotalPrice}}</td></tr>
        </table>
    </div>
</body>
</html>
`
