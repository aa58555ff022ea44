// internal/service/calls/service.go
package calls

import (
	"context"
	"fmt"

	"salescoach-service/internal/domain/call"
	xerrors "salescoach-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type Store interface {
	FindCallByID(ctx context.Context, id string) (*call.Call, error)
	FindAnalysisByCallID(ctx context.Context, callID string) (*call.Analysis, error)
	ResetForAnalysis(ctx context.Context, callID string) error
}

// Service exposes read access to calls and their analysis to the owning user.
type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) GetCall(ctx context.Context, callID, requesterID string) (*call.Call, error) {
	c, err := s.store.FindCallByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if c.UserID != requesterID {
		return nil, xerrors.ErrForbidden
	}
	return c, nil
}

func (s *Service) GetAnalysis(ctx context.Context, callID, requesterID string) (*call.Analysis, error) {
	if _, err := s.GetCall(ctx, callID, requesterID); err != nil {
		return nil, err
	}
	return s.store.FindAnalysisByCallID(ctx, callID)
}

// RequestAnalysis clears any previous analysis and moves the call back to
// pending so the analysis worker picks it up again.
func (s *Service) RequestAnalysis(ctx context.Context, callID, requesterID string) (*call.Call, error) {
	c, err := s.GetCall(ctx, callID, requesterID)
	if err != nil {
		return nil, err
	}
	if !c.HasTranscript() {
		return nil, fmt.Errorf("%w: call has no transcript yet", xerrors.ErrConflict)
	}
	if c.Status == call.StatusPending {
		return nil, fmt.Errorf("%w: analysis already in progress", xerrors.ErrConflict)
	}

	if err := s.store.ResetForAnalysis(ctx, callID); err != nil {
		return nil, fmt.Errorf("failed to reset call for analysis: %w", err)
	}

	s.logger.Info("call analysis requested",
		zap.String("call_id", callID),
		zap.String("user_id", requesterID),
	)
	return s.store.FindCallByID(ctx, callID)
}
