package render

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"golang.org/x/text/currency"
	"golang.org/x/text/message"

	"github.com/terra-clan/compare-engine/internal/i18n"
)

var (
	markdown     = goldmark.New()
	descriptions = newDescriptionPolicy()
)

func newDescriptionPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("loading").OnElements("img")
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

// FormatPrice formats an amount in its ISO currency for the localizer's
// language. Unknown currency codes fall back to "<amount> <code>".
func FormatPrice(loc i18n.Localizer, amount float64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "USD"
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%.2f %s", amount, code)
	}
	p := message.NewPrinter(loc.Tag)
	return p.Sprint(currency.Symbol(unit.Amount(amount)))
}

// Markdown converts a product description to sanitized HTML
func Markdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		slog.Warn("failed to render description", "error", err)
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(descriptions.SanitizeBytes(buf.Bytes()))
}
