// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/catalog-backend/internal/config"
	"github.com/your-org/catalog-backend/internal/domain/product"
)

// Service handles PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// SheetData represents the data passed to the spec sheet template
type SheetData struct {
	StoreName   string
	GeneratedAt string
	Product     product.Resource
	Currency    string
}

// GenerateProductSheet renders a one-page spec sheet with pricing and attributes
func (s *Service) GenerateProductSheet(p product.Resource) (*bytes.Buffer, error) {
	htmlContent, err := s.generateHTML(s.sheetData(p))
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)
	pdfg.Title.Set(p.Name)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.EnableLocalFileAccess.Set(false)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

func (s *Service) sheetData(p product.Resource) SheetData {
	return SheetData{
		StoreName:   s.config.App.Name,
		GeneratedAt: time.Now().Format("January 2, 2006"),
		Product:     p,
		Currency:    "$",
	}
}

// generateHTML generates HTML content from template
func (s *Service) generateHTML(data SheetData) (string, error) {
	var buf bytes.Buffer
	if err := sheetTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

var sheetTemplate = template.Must(template.New("sheet").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"value": func(v interface{}) string {
		switch val := v.(type) {
		case nil:
			return ""
		case bool:
			if val {
				return "Yes"
			}
			return "No"
		case float64:
			return fmt.Sprintf("%g", val)
		default:
			return fmt.Sprint(val)
		}
	},
	"label": product.DefaultLabel,
}).Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Product.Name}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { border-bottom: 2px solid #333; padding-bottom: 10px; margin-bottom: 20px; }
        .store { font-size: 14px; color: #666; }
        h1 { margin: 5px 0; font-size: 26px; }
        .meta td { padding: 3px 12px 3px 0; font-size: 13px; }
        .pricing { margin: 20px 0; font-size: 18px; }
        .was { text-decoration: line-through; color: #999; margin-left: 8px; }
        .badge { background: #c0392b; color: white; padding: 2px 6px; border-radius: 3px; font-size: 12px; margin-left: 8px; }
        table.attrs { width: 100%; border-collapse: collapse; margin-top: 10px; }
        table.attrs th, table.attrs td { border: 1px solid #ddd; padding: 8px; text-align: left; font-size: 13px; }
        table.attrs th { background: #f5f5f5; width: 35%; }
        .footer { margin-top: 30px; font-size: 11px; color: #999; }
    </style>
</head>
<body>
    <div class="header">
        <div class="store">{{.StoreName}}</div>
        <h1>{{.Product.Name}}</h1>
        <table class="meta">
            {{if .Product.SKU}}<tr><td>SKU</td><td>{{.Product.SKU}}</td></tr>{{end}}
            {{if .Product.Category}}<tr><td>Category</td><td>{{.Product.Category.Name}}</td></tr>{{end}}
            {{if .Product.Brand}}<tr><td>Brand</td><td>{{.Product.Brand.Name}}</td></tr>{{end}}
            <tr><td>Condition</td><td>{{label .Product.Condition}}</td></tr>
            <tr><td>Availability</td><td>{{if .Product.InStock}}In stock{{else}}Out of stock{{end}}</td></tr>
        </table>
    </div>

    <div class="pricing">
        <strong>{{.Currency}}{{money .Product.EffectivePrice}}</strong>
        {{if .Product.IsOnSale}}<span class="was">{{.Currency}}{{money .Product.Price}}</span>{{if .Product.DiscountPercentage}}<span class="badge">-{{money .Product.DiscountPercentage}}%</span>{{end}}{{end}}
    </div>

    {{if .Product.ShortDescription}}<p>{{.Product.ShortDescription}}</p>{{end}}

    {{if .Product.Details}}
    <h2>Specifications</h2>
    <table class="attrs">
        {{range .Product.Details}}<tr><th>{{label .Key}}</th><td>{{value .Value}}</td></tr>
        {{end}}
    </table>
    {{end}}

    <div class="footer">Generated {{.GeneratedAt}}</div>
</body>
</html>`))
