package answer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/medidoc/medidoc-server/internal/common"
	"github.com/medidoc/medidoc-server/internal/entity"
	"github.com/medidoc/medidoc-server/internal/llm"
	"github.com/medidoc/medidoc-server/internal/repository"
)

var answerOptions = llm.ChatOptions{
	Temperature: 0.2,
	MaxTokens:   800,
	TopP:        1,
}

// Result is a grounded answer with the records it cites. Sources may be
// empty when nothing in the corpus is relevant; that is a valid answer,
// not an error.
type Result struct {
	Answer  string               `json:"answer"`
	Sources []entity.DocumentRef `json:"sources"`
}

// Service answers natural-language questions over the whole document corpus.
// Every stored record is offered to the model as context; there is no
// similarity pre-filter, so recall never depends on embedding quality.
type Service struct {
	docs   repository.DocumentRepository
	chat   llm.ChatClient
	cfg    common.AnswerConfig
	logger *slog.Logger
}

func NewService(docs repository.DocumentRepository, chat llm.ChatClient, cfg common.AnswerConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = 48 << 10
	}
	if cfg.RawTextSnippet <= 0 {
		cfg.RawTextSnippet = 1500
	}
	return &Service{docs: docs, chat: chat, cfg: cfg, logger: logger}
}

// Answer grounds the query against every stored document and returns the
// model's reply with citations. An empty store is EMPTY_CORPUS so the caller
// can tell "nothing uploaded yet" apart from "nothing relevant found".
func (s *Service) Answer(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.E(common.KindInvalidInput, "query must not be blank", nil)
	}

	records, err := s.docs.Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, common.E(common.KindEmptyCorpus, "no documents uploaded yet", nil)
	}

	corpus := buildCorpusContext(records, s.cfg)
	s.logger.Info("answer.query.start", "documents", len(records), "context_bytes", len(corpus))

	reply, err := s.chat.Complete(ctx, []llm.Message{
		{Role: "system", Content: buildAnswerSystemPrompt()},
		{Role: "user", Content: buildAnswerUserPrompt(query, corpus)},
	}, answerOptions)
	if err != nil {
		s.logger.Error("answer.query.call_failed", "error", err)
		return nil, err
	}

	text, sources := resolveSources(reply, records)
	s.logger.Info("answer.query.ok", "sources", len(sources))
	return &Result{Answer: text, Sources: sources}, nil
}
