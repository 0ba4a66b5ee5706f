package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed assets/dashboard.html
var assets embed.FS

var dashboardTemplate = template.Must(template.ParseFS(assets, "assets/dashboard.html"))

type dashboardView struct {
	BookingURL string
	MinBytes   int
}

// renderDashboard pre-renders the page once; its content never changes at runtime.
func renderDashboard(view dashboardView) ([]byte, error) {
	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("render dashboard: %w", err)
	}
	return buf.Bytes(), nil
}
