package api

import (
	"embed"
	"html/template"

	"shopify-app-auth/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	Shop     string
	Messages []domain.FlashMessage
}
