package server

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/saurabh22suman/soloengine.in/store"
)

// adminData feeds the admin dashboard template.
type adminData struct {
	Profile      store.Profile
	Experience   []store.Experience
	Education    []store.Education
	Skills       []store.Skill
	Achievements []store.Achievement
	Projects     []store.Project
	Certificates []store.Certificate
	Theme        string
	CSRFToken    string
	Notice       string
	Error        string
}

// loginData feeds the login template.
type loginData struct {
	Theme     string
	CSRFToken string
	Error     string
}

// ragData feeds the RAG console template.
type ragData struct {
	Documents       []store.Document
	History         []store.ChatTurn
	Editing         store.Document
	EditingMetadata string
	Theme           string
	CSRFToken       string
	Notice          string
	Error           string
}

// requireAdmin gates admin mutations behind a logged-in session and a valid
// CSRF form token.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.lookup(r)
		if !ok || !sess.Admin {
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostFormValue("csrf_token") != sess.CSRFToken {
			s.redirectAdmin(w, r, "", "Invalid security token")
			return
		}
		next(w, r)
	}
}

func (s *Server) redirectAdmin(w http.ResponseWriter, r *http.Request, notice, errMsg string) {
	target := "/admin"
	params := url.Values{}
	if notice != "" {
		params.Set("notice", notice)
	}
	if errMsg != "" {
		params.Set("error", errMsg)
	}
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) theme(r *http.Request) string {
	settings, err := s.store.GetSettings(r.Context())
	if err != nil {
		return "light"
	}
	return settings.Theme
}

func (s *Server) handleAdminHome(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.ensure(w, r)

	if !sess.Admin {
		s.render(w, "login.html", loginData{
			Theme:     s.theme(r),
			CSRFToken: sess.CSRFToken,
			Error:     r.URL.Query().Get("error"),
		})
		return
	}

	ctx := r.Context()
	data := adminData{
		Theme:     s.theme(r),
		CSRFToken: sess.CSRFToken,
		Notice:    r.URL.Query().Get("notice"),
		Error:     r.URL.Query().Get("error"),
	}

	var err error
	if data.Profile, err = s.store.GetProfile(ctx); err != nil {
		log.Printf("[server] Admin profile load failed: %v", err)
	}
	if data.Experience, err = s.store.ListExperience(ctx); err != nil {
		log.Printf("[server] Admin experience load failed: %v", err)
	}
	if data.Education, err = s.store.ListEducation(ctx); err != nil {
		log.Printf("[server] Admin education load failed: %v", err)
	}
	if data.Skills, err = s.store.ListSkills(ctx); err != nil {
		log.Printf("[server] Admin skills load failed: %v", err)
	}
	if data.Achievements, err = s.store.ListAchievements(ctx); err != nil {
		log.Printf("[server] Admin achievements load failed: %v", err)
	}
	if data.Projects, err = s.store.ListProjects(ctx); err != nil {
		log.Printf("[server] Admin projects load failed: %v", err)
	}
	if data.Certificates, err = s.store.ListCertificates(ctx); err != nil {
		log.Printf("[server] Admin certificates load failed: %v", err)
	}

	s.render(w, "admin.html", data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.ensure(w, r)

	if err := r.ParseForm(); err != nil || r.PostFormValue("csrf_token") != sess.CSRFToken {
		s.redirectAdmin(w, r, "", "Invalid security token")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if !s.store.VerifyAdmin(r.Context(), username, password) {
		s.redirectAdmin(w, r, "", "Invalid username or password")
		return
	}

	s.sessions.setAdmin(sess.ID, true)
	s.redirectAdmin(w, r, "", "")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.sessions.lookup(r); ok {
		s.sessions.setAdmin(sess.ID, false)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleProfileSave(w http.ResponseWriter, r *http.Request) {
	profile := store.Profile{
		Name:         r.PostFormValue("name"),
		JobTitle:     r.PostFormValue("job_title"),
		Summary:      r.PostFormValue("summary"),
		Email:        r.PostFormValue("email"),
		Phone:        r.PostFormValue("phone"),
		Location:     r.PostFormValue("location"),
		LinkedIn:     r.PostFormValue("linkedin"),
		Website:      r.PostFormValue("website"),
		GitHub:       r.PostFormValue("github"),
		ProfileImage: r.PostFormValue("profile_image"),
	}
	if err := s.store.UpdateProfile(r.Context(), profile); err != nil {
		log.Printf("[server] Profile update failed: %v", err)
		s.redirectAdmin(w, r, "", "Failed to save profile")
		return
	}
	s.redirectAdmin(w, r, "Profile saved", "")
}

func (s *Server) handleExperienceSave(w http.ResponseWriter, r *http.Request) {
	exp := store.Experience{
		ID:          formID(r),
		JobTitle:    r.PostFormValue("job_title"),
		Company:     r.PostFormValue("company"),
		StartDate:   r.PostFormValue("start_date"),
		EndDate:     r.PostFormValue("end_date"),
		Location:    r.PostFormValue("location"),
		Description: splitLines(r.PostFormValue("description")),
	}
	if err := s.store.SaveExperience(r.Context(), exp); err != nil {
		log.Printf("[server] Experience save failed: %v", err)
		s.redirectAdmin(w, r, "", "Failed to save experience")
		return
	}
	s.redirectAdmin(w, r, "Experience saved", "")
}

func (s *Server) handleExperienceDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteEntity(w, r, "experience", s.store.DeleteExperience)
}

func (s *Server) handleExperienceOrder(w http.ResponseWriter, r *http.Request) {
	var ids []int64
	for _, part := range strings.Split(r.PostFormValue("order"), ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			s.redirectAdmin(w, r, "", "Invalid order")
			return
		}
		ids = append(ids, id)
	}
	if err := s.store.UpdateExperienceOrder(r.Context(), ids); err != nil {
		log.Printf("[server] Experience reorder failed: %v", err)
		s.redirectAdmin(w, r, "", "Failed to reorder experience")
		return
	}
	s.redirectAdmin(w, r, "Order updated", "")
}

func (s *Server) handleEducationSave(w http.ResponseWriter, r *http.Request) {
	edu := store.Education{
		ID:          formID(r),
		Degree:      r.PostFormValue("degree"),
		Institution: r.PostFormValue("institution"),
		StartDate:   r.PostFormValue("start_date"),
		EndDate:     r.PostFormValue("end_date"),
		Location:    r.PostFormValue("location"),
		Description: splitLines(r.PostFormValue("description")),
	}
	if err := s.store.SaveEducation(r.Context(), edu); err != nil {
		log.Printf("[server] Education save failed: %v", err)
		s.redirectAdmin(w, r, "", "Failed to save education")
		return
	}
	s.redirectAdmin(w, r, "Education saved", "")
}

func (s *Server) handleEducationDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteEntity(w, r, "education", s.store.DeleteEducation)
}

func (s *Server) handleSkillSave(w http.ResponseWriter, r *http.Request) {
	level, _ := strconv.Atoi(r.PostFormValue("level"))
	skill := store.Skill{
		ID:       formID(r),
		Category: r.PostFormValue("category"),
		Name:     r.PostFormValue("name"),
		Level:    level,
	}
	if err := s.store.SaveSkill(r.Context(), skill); err != nil {
		log.Printf("[server] Skill save failed: %v", err)
		s.redirectAdmin(w, r, "", "Failed to save skill")
		return
	}
	s.redirectAdmin(w, r, "Skill saved", "")
}

func (s *Server) handleSkillDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteEntity(w, r, "skill", s.store.DeleteSkill)
}

func (s *Server) handleAchievementSave(w http.ResponseWriter, r *http.Request) {
	achievement := store.Achievement{
		ID:          formID(r),
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Date:        r.PostFormValue("date"),
	}
	if err := s.store.SaveAchievement(r.Context(), achievement); err != nil {
		log.Printf("[server] Achievement save failed: %v", err)
		s.redirectAdmin(w, r, "", "Failed to save achievement")
		return
	}
	s.redirectAdmin(w, r, "Achievement saved", "")
}

func (s *Server) handleAchievementDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteEntity(w, r, "achievement", s.store.DeleteAchievement)
}

func (s *Server) handleProjectSave(w http.ResponseWriter, r *http.Request) {
	project := store.Project{
		ID:           formID(r),
		Title:        r.PostFormValue("title"),
		Description:  r.PostFormValue("description"),
		Technologies: r.PostFormValue("technologies"),
		Link:         r.PostFormValue("link"),
		Image:        r.PostFormValue("image"),
	}
	if err := s.store.SaveProject(r.Context(), project); err != nil {
		log.Printf("[server] Project save failed: %v", err)
		s.redirectAdmin(w, r, "", "Failed to save project")
		return
	}
	s.redirectAdmin(w, r, "Project saved", "")
}

func (s *Server) handleProjectDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteEntity(w, r, "project", s.store.DeleteProject)
}

func (s *Server) handleCertificateSave(w http.ResponseWriter, r *http.Request) {
	cert := store.Certificate{
		ID:          formID(r),
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Date:        r.PostFormValue("date"),
		Type:        r.PostFormValue("type"),
		Issuer:      r.PostFormValue("issuer"),
		URL:         r.PostFormValue("url"),
	}
	if err := s.store.SaveCertificate(r.Context(), cert); err != nil {
		log.Printf("[server] Certificate save failed: %v", err)
		s.redirectAdmin(w, r, "", "Failed to save entry")
		return
	}
	s.redirectAdmin(w, r, "Entry saved", "")
}

func (s *Server) handleCertificateDelete(w http.ResponseWriter, r *http.Request) {
	s.deleteEntity(w, r, "certificate", s.store.DeleteCertificate)
}

func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	if err := s.store.UpdateTheme(r.Context(), r.PostFormValue("theme")); err != nil {
		s.redirectAdmin(w, r, "", "Failed to change theme")
		return
	}
	s.redirectAdmin(w, r, "", "")
}

func (s *Server) handlePasswordChange(w http.ResponseWriter, r *http.Request) {
	if err := s.store.UpdatePassword(r.Context(), r.PostFormValue("password")); err != nil {
		s.redirectAdmin(w, r, "", "Password must be at least 8 characters")
		return
	}
	s.redirectAdmin(w, r, "Password updated", "")
}

func (s *Server) handleRAGConsole(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.lookup(r)
	if !ok || !sess.Admin {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	ctx := r.Context()
	data := ragData{
		Theme:     s.theme(r),
		CSRFToken: sess.CSRFToken,
		Notice:    r.URL.Query().Get("notice"),
		Error:     r.URL.Query().Get("error"),
	}

	var err error
	if data.Documents, err = s.store.ListDocuments(ctx); err != nil {
		log.Printf("[server] Document list failed: %v", err)
	}
	if data.History, err = s.store.ListRecentHistory(ctx, 50); err != nil {
		log.Printf("[server] History list failed: %v", err)
	}

	if editID, err := strconv.ParseInt(r.URL.Query().Get("edit"), 10, 64); err == nil && editID > 0 {
		if doc, err := s.store.GetDocument(ctx, editID); err == nil {
			data.Editing = doc
			data.EditingMetadata = formatMetadata(doc.Metadata)
		}
	}

	s.render(w, "rag.html", data)
}

// handleDocumentSave creates a document, or re-indexes an existing one when
// the form carries its id.
func (s *Server) handleDocumentSave(w http.ResponseWriter, r *http.Request) {
	id := formID(r)
	title := r.PostFormValue("title")
	source := r.PostFormValue("source")
	content := r.PostFormValue("content")
	metadata := parseMetadata(r.PostFormValue("metadata"))

	var err error
	if id > 0 {
		err = s.store.UpdateDocument(r.Context(), id, title, source, content, metadata)
	} else {
		_, err = s.store.AddDocument(r.Context(), title, source, content, metadata)
	}
	if err != nil {
		log.Printf("[server] Document save failed: %v", err)
		s.redirectRAG(w, r, "", "Failed to save document")
		return
	}
	s.redirectRAG(w, r, "Document indexed", "")
}

func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveDocument(r.Context(), formID(r)); err != nil {
		log.Printf("[server] Document delete failed: %v", err)
		s.redirectRAG(w, r, "", "Failed to delete document")
		return
	}
	s.redirectRAG(w, r, "Document deleted", "")
}

func (s *Server) handleResetLimits(w http.ResponseWriter, r *http.Request) {
	if err := s.store.ResetRateLimits(r.Context()); err != nil {
		log.Printf("[server] Rate limit reset failed: %v", err)
		s.redirectRAG(w, r, "", "Failed to reset rate limits")
		return
	}
	s.redirectRAG(w, r, "Rate limits reset successfully", "")
}

func (s *Server) redirectRAG(w http.ResponseWriter, r *http.Request, notice, errMsg string) {
	target := "/admin/rag"
	params := url.Values{}
	if notice != "" {
		params.Set("notice", notice)
	}
	if errMsg != "" {
		params.Set("error", errMsg)
	}
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) deleteEntity(w http.ResponseWriter, r *http.Request, kind string, del func(ctx context.Context, id int64) error) {
	if err := del(r.Context(), formID(r)); err != nil {
		log.Printf("[server] Delete %s failed: %v", kind, err)
		s.redirectAdmin(w, r, "", "Failed to delete "+kind)
		return
	}
	s.redirectAdmin(w, r, "Deleted", "")
}

func formID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
	return id
}

// splitLines turns a textarea into bullet points, one per non-empty line.
func splitLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// formatMetadata renders metadata back into the form's "key=value" syntax.
func formatMetadata(metadata map[string]string) string {
	if len(metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, key := range keys {
		pairs[i] = key + "=" + metadata[key]
	}
	return strings.Join(pairs, ", ")
}

// parseMetadata reads "key=value, key2=value2" pairs.
func parseMetadata(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	metadata := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		metadata[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}
