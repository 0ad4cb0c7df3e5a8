// Package chat orchestrates one turn of the resume assistant: validate the
// message, enforce the rate limit, retrieve context, compose the prompt,
// generate, persist, respond.
package chat

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/saurabh22suman/soloengine.in/store"
)

const (
	// MaxMessageLength is the cap applied to cleaned user input.
	MaxMessageLength = 1000

	// DefaultMaxContextChunks bounds retrieval per turn.
	DefaultMaxContextChunks = 5

	// historyTurns is how many prior exchanges feed the prompt.
	historyTurns = 5

	fallbackResponse = "I'm sorry, I couldn't generate a response. Please try asking in a different way."

	rateLimitMessage = "Rate limit exceeded. Please try again later."

	systemInstruction = "You are a helpful and friendly assistant for a portfolio website. " +
		"Answer questions based on the context provided. " +
		"If you don't know the answer or if the answer cannot be derived from the context, say so.\n\n"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Store is the persistence surface the orchestrator needs.
type Store interface {
	Search(ctx context.Context, query string, limit int, minScore float64) ([]store.SearchResult, error)
	GetHistory(ctx context.Context, sessionID string, limit int) ([]store.ChatTurn, error)
	SaveHistory(ctx context.Context, turn store.ChatTurn) error
	CheckRateLimit(ctx context.Context, clientAddr string) bool
}

// Generator produces a completion for a fully composed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Source identifies a document that contributed context to a response.
type Source struct {
	Title  string `json:"title"`
	Source string `json:"source"`
}

// Result is the outcome of one chat turn.
type Result struct {
	Message     string   `json:"message"`
	Status      string   `json:"status"`
	Sources     []Source `json:"sources"`
	RateLimited bool     `json:"rate_limited,omitempty"`
}

// Orchestrator runs chat turns against a store and a generator.
type Orchestrator struct {
	store            Store
	generator        Generator
	maxContextChunks int
	minScore         float64
}

// New creates an Orchestrator. maxContextChunks <= 0 selects the default.
func New(st Store, gen Generator, maxContextChunks int) *Orchestrator {
	if maxContextChunks <= 0 {
		maxContextChunks = DefaultMaxContextChunks
	}
	return &Orchestrator{
		store:            st,
		generator:        gen,
		maxContextChunks: maxContextChunks,
		minScore:         store.DefaultMinScore,
	}
}

// Process handles one user message and always returns a Result, never an
// error: failures downstream of validation become an apology or a generic
// error message so the widget has something to show.
func (o *Orchestrator) Process(ctx context.Context, sessionID, message, clientAddr string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[chat] Panic while processing message: %v", r)
			result = errorResult("An error occurred while processing your message")
		}
	}()

	if sessionID == "" {
		return errorResult("Invalid input parameters")
	}

	cleaned := CleanInput(message)
	if cleaned == "" {
		return errorResult("Empty or invalid message")
	}

	if !o.store.CheckRateLimit(ctx, clientAddr) {
		r := errorResult(rateLimitMessage)
		r.RateLimited = true
		return r
	}

	// Retrieval failures degrade to an uncontextualized answer.
	results, err := o.store.Search(ctx, cleaned, o.maxContextChunks, o.minScore)
	if err != nil {
		log.Printf("[chat] Context search failed: %v", err)
		results = nil
	}

	history, err := o.store.GetHistory(ctx, sessionID, historyTurns)
	if err != nil {
		log.Printf("[chat] History lookup failed: %v", err)
		history = nil
	}

	prompt := composePrompt(cleaned, results, history)

	response, err := o.generator.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(response) == "" {
		if err != nil {
			log.Printf("[chat] Generation failed: %v", err)
		}
		response = fallbackResponse
	}

	turn := store.ChatTurn{
		SessionID:      sessionID,
		UserMessage:    cleaned,
		SystemResponse: response,
		ContextIDs:     chunkIDs(results),
		ClientAddr:     clientAddr,
	}
	if err := o.store.SaveHistory(ctx, turn); err != nil {
		log.Printf("[chat] Failed to persist chat turn: %v", err)
	}

	return Result{
		Message: response,
		Status:  "success",
		Sources: extractSources(results),
	}
}

// CleanInput strips markup, trims whitespace, and truncates long messages.
func CleanInput(input string) string {
	cleaned := tagPattern.ReplaceAllString(input, "")
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) > MaxMessageLength {
		cleaned = cleaned[:MaxMessageLength]
	}
	return cleaned
}

func composePrompt(message string, results []store.SearchResult, history []store.ChatTurn) string {
	var b strings.Builder
	b.WriteString(systemInstruction)

	if context := buildContext(results); context != "" {
		b.WriteString(context)
		b.WriteString("\n")
	}

	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "User: %s\n", turn.UserMessage)
			fmt.Fprintf(&b, "Assistant: %s\n", turn.SystemResponse)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User: %s\n", message)
	b.WriteString("Assistant:")
	return b.String()
}

func buildContext(results []store.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Context information:\n\n")
	for _, r := range results {
		b.WriteString("---\n")
		b.WriteString("Source: " + r.Title)
		if r.Source != "" {
			b.WriteString(" (" + r.Source + ")")
		}
		b.WriteString("\n\n")
		b.WriteString(r.Content + "\n\n")
	}
	b.WriteString("---\n\n")
	return b.String()
}

func chunkIDs(results []store.SearchResult) []int64 {
	ids := make([]int64, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ChunkID)
	}
	return ids
}

// extractSources lists each contributing document once, first hit wins.
func extractSources(results []store.SearchResult) []Source {
	sources := []Source{}
	seen := map[string]bool{}
	for _, r := range results {
		if seen[r.Title] {
			continue
		}
		seen[r.Title] = true
		sources = append(sources, Source{Title: r.Title, Source: r.Source})
	}
	return sources
}

func errorResult(message string) Result {
	return Result{Message: message, Status: "error", Sources: []Source{}}
}
