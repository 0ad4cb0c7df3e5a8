package store

import "time"

// Document is a source document for the RAG knowledge base.
type Document struct {
	ID         int64             `json:"id"`
	Title      string            `json:"title"`
	Source     string            `json:"source"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	ChunkCount int               `json:"chunk_count"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// SearchResult is one chunk matched by a similarity search, annotated with
// its owning document.
type SearchResult struct {
	ChunkID    int64             `json:"chunk_id"`
	DocumentID int64             `json:"document_id"`
	Content    string            `json:"content"`
	Title      string            `json:"title"`
	Source     string            `json:"source"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Score      float64           `json:"score"`
}

// ChatTurn is one user/assistant exchange. Turns are append-only.
type ChatTurn struct {
	ID             int64     `json:"id"`
	SessionID      string    `json:"session_id"`
	UserMessage    string    `json:"user_message"`
	SystemResponse string    `json:"system_response"`
	ContextIDs     []int64   `json:"context_ids,omitempty"`
	ClientAddr     string    `json:"client_addr"`
	CreatedAt      time.Time `json:"created_at"`
}

// Profile is the single-row about-me record.
type Profile struct {
	Name         string `json:"name"`
	JobTitle     string `json:"job_title"`
	Summary      string `json:"summary"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Location     string `json:"location"`
	LinkedIn     string `json:"linkedin"`
	Website      string `json:"website"`
	GitHub       string `json:"github"`
	ProfileImage string `json:"profile_image"`
}

// Experience is one work-history entry. Description holds bullet points.
type Experience struct {
	ID          int64    `json:"id"`
	JobTitle    string   `json:"job_title"`
	Company     string   `json:"company"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Location    string   `json:"location"`
	Description []string `json:"description"`
	OrderIndex  int      `json:"order_index"`
}

// Education is one education entry.
type Education struct {
	ID          int64    `json:"id"`
	Degree      string   `json:"degree"`
	Institution string   `json:"institution"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Location    string   `json:"location"`
	Description []string `json:"description"`
}

// Skill is one skill with a 1-5 proficiency level, grouped by category.
type Skill struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Name     string `json:"name"`
	Level    int    `json:"level"`
}

// Achievement is one achievement entry.
type Achievement struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

// Project is one portfolio project.
type Project struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Technologies string `json:"technologies"`
	Link         string `json:"link"`
	Image        string `json:"image"`
}

// Certificate is a certificate or conference entry.
type Certificate struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Issuer      string `json:"issuer"`
	URL         string `json:"url"`
}

// Settings holds the admin account and site theme.
type Settings struct {
	Username string `json:"username"`
	Theme    string `json:"theme"`
}
