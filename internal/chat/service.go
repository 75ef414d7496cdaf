package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tutorai/tutorai-backend/internal/indexerclient"
	"github.com/tutorai/tutorai-backend/internal/logger"
)

var (
	ErrRetrievalUnavailable = errors.New("retrieval service unavailable")
	ErrGenerationFailed     = errors.New("answer generation failed")
)

// Retriever is the slice of the indexer client the chat flow needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, documentID *int64) ([]indexerclient.RetrievedChunk, error)
}

// Generator produces an answer for a fully built prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SessionStore is the slice of the repository the RAG flow touches.
type SessionStore interface {
	GetSession(ctx context.Context, userID, sessionID string) (*Session, error)
	AppendMessage(ctx context.Context, sessionID, role, content string, sources []SourceRef) (*Message, error)
	SetTitleIfEmpty(ctx context.Context, sessionID, title string) error
}

type Service struct {
	repo      SessionStore
	retriever Retriever
	generator Generator
	topK      int
}

func NewService(repo SessionStore, retriever Retriever, generator Generator, topK int) *Service {
	if topK <= 0 {
		topK = 5
	}
	return &Service{repo: repo, retriever: retriever, generator: generator, topK: topK}
}

type Answer struct {
	UserMessage      *Message `json:"user_message"`
	AssistantMessage *Message `json:"assistant_message"`
}

// Ask runs the RAG flow for one user question. The user message is
// persisted before retrieval/generation, so a failed turn still shows up
// in history.
func (s *Service) Ask(ctx context.Context, userID, sessionID, question string, documentID *int64) (*Answer, error) {
	if _, err := s.repo.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	userMsg, err := s.repo.AppendMessage(ctx, sessionID, RoleUser, question, nil)
	if err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}
	if err := s.repo.SetTitleIfEmpty(ctx, sessionID, sessionTitle(question)); err != nil {
		logger.Warn().Err(err).Str("session_id", sessionID).Msg("set session title")
	}

	chunks, err := s.retriever.Retrieve(ctx, question, s.topK, documentID)
	if err != nil {
		logger.Error().Err(err).Str("session_id", sessionID).Msg("retrieval failed")
		return &Answer{UserMessage: userMsg}, ErrRetrievalUnavailable
	}

	answer, err := s.generator.Generate(ctx, buildPrompt(question, chunks))
	if err != nil {
		logger.Error().Err(err).Str("session_id", sessionID).Msg("generation failed")
		return &Answer{UserMessage: userMsg}, ErrGenerationFailed
	}

	sources := make([]SourceRef, 0, len(chunks))
	for _, ch := range chunks {
		sources = append(sources, SourceRef{
			ChunkID:    ch.ChunkID,
			DocumentID: ch.DocumentID,
			ChunkIndex: ch.ChunkIndex,
			Similarity: ch.Similarity,
		})
	}

	assistantMsg, err := s.repo.AppendMessage(ctx, sessionID, RoleAssistant, answer, sources)
	if err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}

	return &Answer{UserMessage: userMsg, AssistantMessage: assistantMsg}, nil
}

const maxTitleLen = 60

func sessionTitle(question string) string {
	title := strings.TrimSpace(question)
	runes := []rune(title)
	if len(runes) > maxTitleLen {
		title = strings.TrimSpace(string(runes[:maxTitleLen])) + "..."
	}
	return title
}

func buildPrompt(question string, chunks []indexerclient.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("You are TutorAI, a patient tutor helping a student understand their course material. ")
	b.WriteString("Answer the question using the provided context. ")
	b.WriteString("If the context does not cover the question, say so and answer from general knowledge.\n\n")

	if len(chunks) > 0 {
		b.WriteString("Context:\n")
		for i, ch := range chunks {
			fmt.Fprintf(&b, "[%d] %s\n\n", i+1, strings.TrimSpace(ch.Content))
		}
	} else {
		b.WriteString("Context: (no course material matched this question)\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nAnswer:")
	return b.String()
}
