package services

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

// OrderConfirmationData is the data of the order confirmation email
type OrderConfirmationData struct {
	OrderNumber  string
	OrderDate    string
	CustomerName string
	EventName    string
	EventDate    string
	Total        string
	DownloadURL  string
	ValidUntil   string
}

// EmailTemplates renders the customer emails
type EmailTemplates struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// NewEmailTemplates parses the built-in email templates
func NewEmailTemplates() *EmailTemplates {
	return &EmailTemplates{
		html: htmltemplate.Must(htmltemplate.New("order_confirmation").Parse(orderConfirmationHTML)),
		text: texttemplate.Must(texttemplate.New("order_confirmation").Parse(orderConfirmationText)),
	}
}

// OrderConfirmation renders the subject and both bodies of the order
// confirmation email
func (t *EmailTemplates) OrderConfirmation(data *OrderConfirmationData) (subject, html, text string, err error) {
	var htmlBuf bytes.Buffer
	if err := t.html.Execute(&htmlBuf, data); err != nil {
		return "", "", "", fmt.Errorf("failed to render HTML template: %w", err)
	}

	var textBuf bytes.Buffer
	if err := t.text.Execute(&textBuf, data); err != nil {
		return "", "", "", fmt.Errorf("failed to render text template: %w", err)
	}

	subject = fmt.Sprintf("Je tickets voor bestelling #%s", data.OrderNumber)
	return subject, htmlBuf.String(), textBuf.String(), nil
}

// formatEmailDate renders a date the way the emails show it
func formatEmailDate(t time.Time) string {
	return t.Format("02-01-2006 15:04")
}

const orderConfirmationHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Bestelbevestiging</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4F46E5; color: white; padding: 20px; text-align: center; }
        .content { padding: 20px; background-color: #f9f9f9; }
        .button { display: inline-block; padding: 12px 24px; background-color: #4F46E5; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { text-align: center; padding: 20px; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Bedankt voor je bestelling!</h1>
        </div>
        <div class="content">
            <p>Beste {{if .CustomerName}}{{.CustomerName}}{{else}}klant{{end}},</p>
            <p>Je bestelling <strong>#{{.OrderNumber}}</strong> van {{.OrderDate}} is bevestigd.</p>
            {{if .EventName}}<p><strong>Voorstelling:</strong> {{.EventName}}{{if .EventDate}} ({{.EventDate}}){{end}}</p>{{end}}
            {{if .Total}}<p><strong>Totaal:</strong> {{.Total}}</p>{{end}}
            <p>Je tickets zitten als PDF in de bijlage. Je kunt ze ook downloaden via de knop hieronder.</p>
            <a href="{{.DownloadURL}}" class="button">Download je tickets</a>
            <p>Deze link is geldig tot {{.ValidUntil}}.</p>
        </div>
        <div class="footer">
            <p>Neem je tickets (geprint of op je telefoon) mee naar de voorstelling.</p>
        </div>
    </div>
</body>
</html>
`

const orderConfirmationText = `Bedankt voor je bestelling!

Beste {{if .CustomerName}}{{.CustomerName}}{{else}}klant{{end}},

Je bestelling #{{.OrderNumber}} van {{.OrderDate}} is bevestigd.
{{if .EventName}}Voorstelling: {{.EventName}}{{if .EventDate}} ({{.EventDate}}){{end}}
{{end}}{{if .Total}}Totaal: {{.Total}}
{{end}}
Je tickets zitten als PDF in de bijlage. Je kunt ze ook downloaden via:
{{.DownloadURL}}

Deze link is geldig tot {{.ValidUntil}}.

Neem je tickets (geprint of op je telefoon) mee naar de voorstelling.
`
