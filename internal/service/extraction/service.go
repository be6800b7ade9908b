package extraction

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/medtracker/internal/model"
	apperrors "github.com/jwalitptl/medtracker/pkg/errors"
)

const failureMessage = "Failed to analyze the prescription. Please ensure the image is clear and try again."

// Extractor turns a prescription file into medication candidates.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) ([]model.ParsedMedication, error)
}

type ExtractionServicer interface {
	Extract(ctx context.Context, data []byte, mimeType string) ([]model.ParsedMedication, error)
}

type Service struct {
	extractor Extractor
	logger    zerolog.Logger
}

// NewService accepts a nil extractor, in which case every call fails with a
// configuration error.
func NewService(extractor Extractor, logger zerolog.Logger) *Service {
	return &Service{extractor: extractor, logger: logger}
}

// Accepts reports whether files of this media type can be analyzed.
func Accepts(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}

// Extract never returns a nil slice on success; an empty one means nothing was found.
func (s *Service) Extract(ctx context.Context, data []byte, mimeType string) ([]model.ParsedMedication, error) {
	if len(data) == 0 {
		return nil, apperrors.BadRequest("File is required", nil)
	}
	if !Accepts(mimeType) {
		return nil, apperrors.BadRequest("Only images and PDF files are supported", nil)
	}
	if s.extractor == nil {
		return nil, apperrors.Configuration("Extraction is not configured", nil)
	}

	meds, err := s.extractor.Extract(ctx, data, mimeType)
	if err != nil {
		s.logger.Error().Err(err).Str("mime_type", mimeType).Msg("extraction failed")
		return nil, apperrors.Upstream(failureMessage, err)
	}
	if meds == nil {
		meds = []model.ParsedMedication{}
	}
	return meds, nil
}
