package quotation

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/CGImain/product-calculator-for-chemo/internal/pricing"
)

// EmailData feeds the quotation document template.
type EmailData struct {
	QuoteID         string
	Date            string
	CustomerName    string
	CustomerEmail   string
	PreparedBy      string
	PreparedByEmail string
	Notes           string
	Lines           []pricing.QuoteLine
	Totals          pricing.CartTotals
}

var emailTemplate = template.Must(template.New("quotation").Funcs(template.FuncMap{
	"inr": formatINR,
	"pct": formatPercent,
}).Parse(`<div style="font-family: Arial, sans-serif; color: #333; max-width: 1200px; margin: 0 auto; line-height: 1.6;">
  <div style="background-color: white; border-radius: 0.5rem; padding: 2rem;">
    <div style="text-align: center; margin-bottom: 2rem;">
      <h2 style="margin: 0 0 0.5rem 0; color: #2c3e50;">QUOTATION</h2>
      <p style="color: #6c757d; margin: 0; font-size: 0.9rem;">{{.Date}}</p>
    </div>

    <div style="display: flex; flex-wrap: wrap; gap: 1.5rem; margin-bottom: 2rem;">
      <div style="flex: 1; min-width: 300px; border: 1px solid #dee2e6; border-radius: 0.25rem; padding: 1.25rem;">
        <h5 style="margin: 0 0 1rem 0; font-size: 1rem;">Company Information</h5>
        <div style="font-weight: 600;">CGI - Chemo Graphics INTERNATIONAL</div>
        <div>113, 114 High Tech Industrial Centre,<br>Caves Rd, Jogeshwari East,<br>Mumbai, Maharashtra 400060</div>
        <div><a href="mailto:info@chemo.in">info@chemo.in</a></div>
        <div style="margin-top: 1rem; border-top: 1px solid #e9ecef; padding-top: 1rem;">
          <div style="color: #6c757d; font-size: 0.8rem;">Prepared by:</div>
          <div style="font-weight: 600;">{{.PreparedBy}}</div>
          <div><a href="mailto:{{.PreparedByEmail}}">{{.PreparedByEmail}}</a></div>
        </div>
      </div>
      <div style="flex: 1; min-width: 300px; border: 1px solid #dee2e6; border-radius: 0.25rem; padding: 1.25rem;">
        <h5 style="margin: 0 0 1rem 0; font-size: 1rem;">Customer Information</h5>
        <div style="font-weight: 600;">{{.CustomerName}}</div>
        <div><a href="mailto:{{.CustomerEmail}}">{{.CustomerEmail}}</a></div>
        <div style="margin-top: 1rem;">{{.Date}}</div>
        <div style="margin-top: 1rem; border-top: 1px solid #e9ecef; padding-top: 1rem;">
          <div style="color: #6c757d; font-size: 0.8rem;">Quotation #</div>
          <div style="font-weight: 600;">{{.QuoteID}}</div>
        </div>
      </div>
    </div>

    <p>Hello,</p>
    <p>This is {{.PreparedBy}} from CGI.</p>
    <p>Here is the proposed quotation for the required products:</p>
    {{if .Notes}}<p><strong>Notes:</strong><br>{{.Notes}}</p>{{end}}

    <table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
      <thead>
        <tr style="background-color: #1a5276; color: white;">
          <th style="padding: 10px; text-align: left;">Item</th>
          <th style="padding: 10px; text-align: left;">Machine</th>
          <th style="padding: 10px; text-align: left;">Product</th>
          <th style="padding: 10px; text-align: left;">Type</th>
          <th style="padding: 10px; text-align: left;">Thickness</th>
          <th style="padding: 10px; text-align: left;">Size</th>
          <th style="padding: 10px; text-align: left;">Bar</th>
          <th style="padding: 10px; text-align: right;">Qty</th>
          <th style="padding: 10px; text-align: right;">Price</th>
          <th style="padding: 10px; text-align: right;">Total</th>
        </tr>
      </thead>
      <tbody>
        {{range .Lines}}
        <tr>
          <td style="padding: 8px; border: 1px solid #ddd;">{{.Number}}</td>
          <td style="padding: 8px; border: 1px solid #ddd;">{{.Machine}}</td>
          <td style="padding: 8px; border: 1px solid #ddd;">{{.ProductType}}</td>
          <td style="padding: 8px; border: 1px solid #ddd;">{{.Name}}</td>
          <td style="padding: 8px; border: 1px solid #ddd;">{{.Thickness}}</td>
          <td style="padding: 8px; border: 1px solid #ddd;">{{.Dimensions}}</td>
          <td style="padding: 8px; border: 1px solid #ddd;">{{.BarType}}</td>
          <td style="padding: 8px; text-align: right; border: 1px solid #ddd;">{{.Quantity}}</td>
          <td style="padding: 8px; text-align: right; border: 1px solid #ddd;">{{inr .UnitPrice}}</td>
          <td style="padding: 8px; text-align: right; border: 1px solid #ddd;">{{inr .FinalTotal}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <div style="margin: 2rem 0; display: flex; justify-content: flex-end;">
      <table style="width: 50%; border-collapse: collapse;">
        <tbody>
          <tr>
            <td style="padding: 8px; text-align: right;">Sub Total:</td>
            <td style="padding: 8px; text-align: right;">{{inr .Totals.SubtotalBeforeDiscount}}</td>
          </tr>
          <tr>
            <td style="padding: 8px; text-align: right;">Total Discount:</td>
            <td style="padding: 8px; text-align: right;">{{inr .Totals.TotalDiscount}}</td>
          </tr>
          <tr>
            <td style="padding: 8px; text-align: right;">Total Taxable Amount:</td>
            <td style="padding: 8px; text-align: right;">{{inr .Totals.SubtotalAfterDiscount}}</td>
          </tr>
          <tr>
            <td style="padding: 8px; text-align: right;">GST on Blankets ({{pct .Totals.Breakdown.Blankets.Rate}}):</td>
            <td style="padding: 8px; text-align: right;">{{inr .Totals.Breakdown.Blankets.GST}}</td>
          </tr>
          <tr>
            <td style="padding: 8px; text-align: right;">GST on MPacks ({{pct .Totals.Breakdown.Mpacks.Rate}}):</td>
            <td style="padding: 8px; text-align: right;">{{inr .Totals.Breakdown.Mpacks.GST}}</td>
          </tr>
          <tr style="border-top: 1px solid #dee2e6; font-weight: bold;">
            <td style="padding: 8px; text-align: right;">Total:</td>
            <td style="padding: 8px; text-align: right;">{{inr .Totals.Total}}</td>
          </tr>
        </tbody>
      </table>
    </div>

    <p>Thank you for your business!<br>&mdash; Team CGI</p>
    <p>For more information, please contact: <a href="mailto:info@chemo.in">info@chemo.in</a></p>
    <div style="margin-top: 1.5rem; padding: 1rem; background-color: #f8f9fa; text-align: center;">
      <p style="color: #6c757d; font-size: 0.8rem; margin: 0;">
        This quotation is not a contract or invoice. It is our best estimate.
      </p>
    </div>
  </div>
</div>`))

// RenderEmail produces the HTML quotation document.
func RenderEmail(data EmailData) (string, error) {
	var sb strings.Builder
	if err := emailTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render quotation email: %w", err)
	}
	return sb.String(), nil
}

// Subject builds the email subject for a quotation sent on date.
func Subject(date time.Time) string {
	return "Quotation from Chemo INTERNATIONAL - " + date.Format("02/01/2006")
}

func formatINR(v float64) string {
	return "₹" + withThousands(fmt.Sprintf("%.2f", v))
}

func formatPercent(v float64) string {
	s := fmt.Sprintf("%g", v)
	return s + "%"
}

// withThousands inserts comma separators into the integer part of a
// formatted decimal.
func withThousands(s string) string {
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]
	neg := false
	if strings.HasPrefix(intPart, "-") {
		neg = true
		intPart = intPart[1:]
	}
	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	out := sb.String() + frac
	if neg {
		return "-" + out
	}
	return out
}
