package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers all web GUI routes on the provided mux.
// Web routes serve HTML at / and /app/* paths.
// Static assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Static assets (embedded via go:embed).
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Page routes.
	mux.HandleFunc("GET /{$}", h.List)
	mux.HandleFunc("GET /app/credentials/new", h.NewForm)
	mux.HandleFunc("POST /app/credentials", requireCSRF(h.Create))
	mux.HandleFunc("GET /app/credentials/{id}/edit", h.EditForm)
	mux.HandleFunc("POST /app/credentials/{id}", requireCSRF(h.Update))
	mux.HandleFunc("POST /app/credentials/{id}/delete", requireCSRF(h.Delete))
	mux.HandleFunc("POST /app/credentials/{id}/login", requireCSRF(h.Login))

	mux.HandleFunc("GET /app/transfer", h.TransferPage)
	mux.HandleFunc("POST /app/export", requireCSRF(h.Export))
	mux.HandleFunc("POST /app/import", requireCSRF(h.Import))

	mux.HandleFunc("GET /app/master-password", h.MasterPasswordPage)
	mux.HandleFunc("POST /app/master-password", requireCSRF(h.SetMasterPassword))
	mux.HandleFunc("POST /app/master-password/remove", requireCSRF(h.RemoveMasterPassword))

	mux.HandleFunc("GET /app/help", h.Help)
}
