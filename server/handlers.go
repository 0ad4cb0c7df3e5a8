package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"os/exec"
	"time"

	"github.com/saurabh22suman/soloengine.in/chat"
	"github.com/saurabh22suman/soloengine.in/store"
)

// pageData feeds the public and print templates.
type pageData struct {
	Profile      store.Profile
	Experience   []store.Experience
	Education    []store.Education
	Skills       map[string][]store.Skill
	Achievements []store.Achievement
	Projects     []store.Project
	Certificates []store.Certificate
	Theme        string
	CSRFToken    string
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	database := "connected"
	status := "ok"
	if err := s.store.Ping(r.Context()); err != nil {
		database = "error"
		status = "warn"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"service":   "soloengine",
		"database":  database,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.ensure(w, r)

	data, err := s.loadPageData(r.Context())
	if err != nil {
		log.Printf("[server] Failed to load page data: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	data.CSRFToken = sess.CSRFToken

	s.render(w, "index.html", data)
}

func (s *Server) loadPageData(ctx context.Context) (pageData, error) {
	var data pageData
	var err error

	if data.Profile, err = s.store.GetProfile(ctx); err != nil {
		return data, err
	}
	if data.Experience, err = s.store.ListExperience(ctx); err != nil {
		return data, err
	}
	if data.Education, err = s.store.ListEducation(ctx); err != nil {
		return data, err
	}
	skills, err := s.store.ListSkills(ctx)
	if err != nil {
		return data, err
	}
	data.Skills = groupSkills(skills)
	if data.Achievements, err = s.store.ListAchievements(ctx); err != nil {
		return data, err
	}
	if data.Projects, err = s.store.ListProjects(ctx); err != nil {
		return data, err
	}
	if data.Certificates, err = s.store.ListCertificates(ctx); err != nil {
		return data, err
	}

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return data, err
	}
	data.Theme = settings.Theme
	return data, nil
}

func groupSkills(skills []store.Skill) map[string][]store.Skill {
	grouped := make(map[string][]store.Skill)
	for _, sk := range skills {
		grouped[sk.Category] = append(grouped[sk.Category], sk)
	}
	return grouped
}

type chatRequest struct {
	Message   string `json:"message"`
	CSRFToken string `json:"csrf_token"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeChatError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, ok := s.sessions.lookup(r)
	if !ok || req.CSRFToken == "" || req.CSRFToken != sess.CSRFToken {
		writeChatError(w, http.StatusForbidden, "Invalid security token")
		return
	}

	result := s.chat.Process(r.Context(), sess.ChatID, req.Message, clientAddr(r))
	json.NewEncoder(w).Encode(result)
}

func writeChatError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(chat.Result{
		Message: message,
		Status:  "error",
		Sources: []chat.Source{},
	})
}

// clientAddr prefers the proxy header, falling back to the socket address.
func clientAddr(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	binary, err := exec.LookPath(s.pdfBinary)
	if err != nil {
		http.Error(w, "PDF export unavailable", http.StatusServiceUnavailable)
		return
	}

	data, err := s.loadPageData(r.Context())
	if err != nil {
		log.Printf("[server] Failed to load page data for PDF: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var page bytes.Buffer
	if err := s.templates.ExecuteTemplate(&page, "print.html", data); err != nil {
		log.Printf("[server] Failed to render print template: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	// Read HTML from stdin, write PDF to stdout.
	cmd := exec.CommandContext(ctx, binary, "--quiet", "--enable-local-file-access", "-", "-")
	cmd.Stdin = &page
	var pdf bytes.Buffer
	cmd.Stdout = &pdf

	if err := cmd.Run(); err != nil {
		log.Printf("[server] wkhtmltopdf failed: %v", err)
		http.Error(w, "PDF generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="resume.pdf"`)
	w.Write(pdf.Bytes())
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("[server] Failed to render %s: %v", name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}
