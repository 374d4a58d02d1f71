package sequence

import (
	"context"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/observability"
)

// DiagramSource resolves the current sequence of a diagram.
type DiagramSource interface {
	GetSequence(ctx context.Context, diagramID string) (string, error)
}

// Service runs assistant prompts against diagrams and records the exchanges.
type Service struct {
	assistant Assistant
	store     Store
	diagrams  DiagramSource
	logger    *observability.Logger
}

// NewService creates the sequence service.
func NewService(assistant Assistant, store Store, diagrams DiagramSource, logger *observability.Logger) *Service {
	return &Service{
		assistant: assistant,
		store:     store,
		diagrams:  diagrams,
		logger:    logger,
	}
}

// Prompt sends the user's request to the model with the diagram's current
// sequence and prior exchanges as context. The exchange is recorded; when the
// model produced a changed sequence a history revision is recorded too.
// Recording failures are logged but do not fail the request.
func (s *Service) Prompt(ctx context.Context, diagramID, userID, prompt string, previous []PreviousPrompt) (*ModelResult, error) {
	if prompt == "" {
		return nil, apierrors.Validation("Prompt is required")
	}

	existing, err := s.diagrams.GetSequence(ctx, diagramID)
	if err != nil {
		return nil, apierrors.NotFound("Diagram not found")
	}

	result, err := s.assistant.Prompt(ctx, existing, prompt, previous)
	if err != nil {
		s.logger.WithError(err).Error("assistant prompt failed")
		return nil, apierrors.Internal("Error", err)
	}

	record := &PromptRecord{
		UserID:        userID,
		DiagramID:     diagramID,
		Prompt:        prompt,
		ModelResponse: result.Answer,
		NewSequence:   result.Sequence,
	}
	if err := s.store.CreatePrompt(ctx, record); err != nil {
		s.logger.WithError(err).Warn("failed to record prompt")
	}

	if result.Sequence != "" && result.Sequence != existing {
		history := &HistoryRecord{
			UserID:         userID,
			DiagramID:      diagramID,
			FormerSequence: existing,
			NewSequence:    result.Sequence,
			Prompt:         prompt,
			ModelResponse:  result.Answer,
		}
		if err := s.store.CreateHistory(ctx, history); err != nil {
			s.logger.WithError(err).Warn("failed to record sequence history")
		}
	}

	return result, nil
}

// ListPrompts returns the diagram's stored assistant exchanges.
func (s *Service) ListPrompts(ctx context.Context, diagramID string, p httputil.Pagination) ([]PromptRecord, error) {
	rows, err := s.store.ListPrompts(ctx, diagramID, p)
	if err != nil {
		return nil, apierrors.Internal("Failed to list prompts", err)
	}
	return rows, nil
}

// ListHistory returns the diagram's sequence revisions.
func (s *Service) ListHistory(ctx context.Context, diagramID string, p httputil.Pagination) ([]HistoryRecord, error) {
	rows, err := s.store.ListHistory(ctx, diagramID, p)
	if err != nil {
		return nil, apierrors.Internal("Failed to list history", err)
	}
	return rows, nil
}
