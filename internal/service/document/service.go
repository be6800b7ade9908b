package document

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/internal/repository"
	apperrors "github.com/jwalitptl/medtracker/pkg/errors"
	"github.com/jwalitptl/medtracker/pkg/messaging"
	"github.com/jwalitptl/medtracker/pkg/metrics"
)

type DocumentServicer interface {
	// Load returns nil when nothing is stored for userID.
	Load(ctx context.Context, userID string) (*string, error)
	Save(ctx context.Context, userID, data string) error
	LoadDocument(ctx context.Context, userID string) (model.Document, error)
	ListUsers(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

type Service struct {
	repo      repository.DocumentRepository
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService wires the document store. publisher may be nil, in which case saves are not
// announced.
func NewService(repo repository.DocumentRepository, publisher messaging.Publisher, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) Load(ctx context.Context, userID string) (*string, error) {
	if userID == "" {
		return nil, apperrors.BadRequest("User ID is required", nil)
	}

	data, found, err := s.repo.Load(ctx, userID)
	if err != nil {
		return nil, storeError("Failed to load data", err)
	}
	if !found {
		return nil, nil
	}
	return &data, nil
}

func (s *Service) Save(ctx context.Context, userID, data string) error {
	if userID == "" || data == "" {
		return apperrors.BadRequest("User ID and data are required", nil)
	}

	if err := s.repo.Save(ctx, userID, data); err != nil {
		return storeError("Failed to save data", err)
	}

	s.announce(ctx, userID)
	return nil
}

// LoadDocument loads and decodes a user's document. A user with nothing stored has an
// empty document.
func (s *Service) LoadDocument(ctx context.Context, userID string) (model.Document, error) {
	data, err := s.Load(ctx, userID)
	if err != nil {
		return model.Document{}, err
	}
	if data == nil {
		return model.DecodeDocument("")
	}
	doc, err := model.DecodeDocument(*data)
	if err != nil {
		return model.Document{}, apperrors.Internal(err)
	}
	return doc, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]string, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, storeError("Failed to list users", err)
	}
	return users, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) announce(ctx context.Context, userID string) {
	if s.publisher == nil {
		return
	}
	event := model.DocumentSavedEvent{UserID: userID, SavedAt: s.now().UTC()}
	if err := s.publisher.Publish(ctx, model.ChannelDocumentSaved, event); err != nil {
		s.metrics.PublishFailed()
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to publish save event")
	}
}

func storeError(message string, err error) error {
	if errors.Is(err, repository.ErrNotConfigured) {
		return apperrors.Configuration(message, err)
	}
	return apperrors.Storage(message, err)
}
