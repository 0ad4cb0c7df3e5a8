// Package server is the HTTP layer: the public resume page, the chat API,
// the PDF export, and the admin console.
package server

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/saurabh22suman/soloengine.in/chat"
	"github.com/saurabh22suman/soloengine.in/store"
	"github.com/saurabh22suman/soloengine.in/web"
)

// Config configures a new Server instance.
type Config struct {
	Store *store.Store
	Chat  *chat.Orchestrator

	// WkhtmltopdfPath is the wkhtmltopdf binary. Empty means look it up on
	// PATH; the PDF endpoint returns 503 when it cannot be found.
	WkhtmltopdfPath string
}

// Server serves the site.
type Server struct {
	store     *store.Store
	chat      *chat.Orchestrator
	sessions  *sessionStore
	templates *template.Template
	pdfBinary string
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("server: store is required")
	}
	if cfg.Chat == nil {
		return nil, fmt.Errorf("server: chat orchestrator is required")
	}

	funcs := template.FuncMap{
		// levelDots renders a 1-5 proficiency as filled/empty markers.
		"levelDots": func(level int) []bool {
			dots := make([]bool, 5)
			for i := 0; i < level && i < 5; i++ {
				dots[i] = true
			}
			return dots
		},
	}

	templates, err := template.New("").Funcs(funcs).ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	binary := cfg.WkhtmltopdfPath
	if binary == "" {
		binary = "wkhtmltopdf"
	}

	return &Server{
		store:     cfg.Store,
		chat:      cfg.Chat,
		sessions:  newSessionStore(),
		templates: templates,
		pdfBinary: binary,
	}, nil
}

// Handler returns the route table for the site.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /resume.pdf", s.handlePDF)
	mux.HandleFunc("POST /api/chat", s.handleChat)

	mux.HandleFunc("GET /admin", s.handleAdminHome)
	mux.HandleFunc("POST /admin/login", s.handleLogin)
	mux.HandleFunc("POST /admin/logout", s.requireAdmin(s.handleLogout))

	mux.HandleFunc("POST /admin/profile", s.requireAdmin(s.handleProfileSave))
	mux.HandleFunc("POST /admin/experience", s.requireAdmin(s.handleExperienceSave))
	mux.HandleFunc("POST /admin/experience/delete", s.requireAdmin(s.handleExperienceDelete))
	mux.HandleFunc("POST /admin/experience/order", s.requireAdmin(s.handleExperienceOrder))
	mux.HandleFunc("POST /admin/education", s.requireAdmin(s.handleEducationSave))
	mux.HandleFunc("POST /admin/education/delete", s.requireAdmin(s.handleEducationDelete))
	mux.HandleFunc("POST /admin/skills", s.requireAdmin(s.handleSkillSave))
	mux.HandleFunc("POST /admin/skills/delete", s.requireAdmin(s.handleSkillDelete))
	mux.HandleFunc("POST /admin/achievements", s.requireAdmin(s.handleAchievementSave))
	mux.HandleFunc("POST /admin/achievements/delete", s.requireAdmin(s.handleAchievementDelete))
	mux.HandleFunc("POST /admin/projects", s.requireAdmin(s.handleProjectSave))
	mux.HandleFunc("POST /admin/projects/delete", s.requireAdmin(s.handleProjectDelete))
	mux.HandleFunc("POST /admin/certificates", s.requireAdmin(s.handleCertificateSave))
	mux.HandleFunc("POST /admin/certificates/delete", s.requireAdmin(s.handleCertificateDelete))
	mux.HandleFunc("POST /admin/theme", s.requireAdmin(s.handleThemeToggle))
	mux.HandleFunc("POST /admin/password", s.requireAdmin(s.handlePasswordChange))

	mux.HandleFunc("GET /admin/rag", s.handleRAGConsole)
	mux.HandleFunc("POST /admin/rag/documents", s.requireAdmin(s.handleDocumentSave))
	mux.HandleFunc("POST /admin/rag/documents/delete", s.requireAdmin(s.handleDocumentDelete))
	mux.HandleFunc("POST /admin/rag/reset-limits", s.requireAdmin(s.handleResetLimits))

	return mux
}
