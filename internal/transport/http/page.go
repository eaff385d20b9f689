package httptransport

import (
	"embed"
	"html/template"
	"net/http"

	"fahrzeugdaten/internal/i18n"
	"fahrzeugdaten/internal/platform/middleware"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// pageData feeds the search page template.
type pageData struct {
	Lang      string
	Languages []string
	T         map[string]string
}

// pageKeys are the ui strings the template needs.
var pageKeys = []string{
	"ui.title",
	"ui.search",
	"ui.search_placeholder",
	"ui.compare",
	"ui.compare_placeholder",
	"ui.refresh",
	"ui.language",
	"ui.no_results",
	"ui.no_data",
	"ui.records",
	"ui.last_updated",
	"ui.export",
	"ui.result_for",
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	lang := h.lang(r)
	loc := h.translator.Localizer(lang)

	t := make(map[string]string, len(pageKeys))
	for _, key := range pageKeys {
		t[key] = loc.Get(key)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTemplate.Execute(w, pageData{
		Lang:      lang,
		Languages: i18n.Languages,
		T:         t,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "render search page failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err)
	}
}
