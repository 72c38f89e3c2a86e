package handlers

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/KBesada24/ai-code-sentinel/config"
	"github.com/KBesada24/ai-code-sentinel/models"
	"github.com/gofiber/fiber/v2"
)

//go:embed templates/*
var templates embed.FS

// PageHandler serves the single page UI
type PageHandler struct {
	tmpl *template.Template
	data pageData
}

type pageData struct {
	Languages       []string
	DefaultLanguage string
	EnableWebSocket bool
	WSEndpoint      string
}

// NewPageHandler parses the embedded page template
func NewPageHandler(cfg *config.Config) (*PageHandler, error) {
	tmpl, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, err
	}

	return &PageHandler{
		tmpl: tmpl,
		data: pageData{
			Languages:       models.SupportedLanguages,
			DefaultLanguage: models.DefaultLanguage,
			EnableWebSocket: cfg.EnableWebSocket,
			WSEndpoint:      cfg.WSEndpoint,
		},
	}, nil
}

// Index handles GET /
func (h *PageHandler) Index(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, h.data); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}
