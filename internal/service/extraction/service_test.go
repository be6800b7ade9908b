package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medtracker/internal/model"
	apperrors "github.com/jwalitptl/medtracker/pkg/errors"
)

type extractorFunc func(ctx context.Context, data []byte, mimeType string) ([]model.ParsedMedication, error)

func (f extractorFunc) Extract(ctx context.Context, data []byte, mimeType string) ([]model.ParsedMedication, error) {
	return f(ctx, data, mimeType)
}

func TestAccepts(t *testing.T) {
	assert.True(t, Accepts("image/png"))
	assert.True(t, Accepts("image/jpeg"))
	assert.True(t, Accepts("application/pdf"))
	assert.False(t, Accepts("text/plain"))
	assert.False(t, Accepts("application/zip"))
}

func TestService_Extract(t *testing.T) {
	svc := NewService(extractorFunc(func(context.Context, []byte, string) ([]model.ParsedMedication, error) {
		return []model.ParsedMedication{{Name: "Aspirin"}}, nil
	}), zerolog.Nop())

	meds, err := svc.Extract(context.Background(), []byte("x"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, []model.ParsedMedication{{Name: "Aspirin"}}, meds)
}

func TestService_NothingFoundIsNotAnError(t *testing.T) {
	svc := NewService(extractorFunc(func(context.Context, []byte, string) ([]model.ParsedMedication, error) {
		return nil, nil
	}), zerolog.Nop())

	meds, err := svc.Extract(context.Background(), []byte("x"), "image/png")
	require.NoError(t, err)
	assert.NotNil(t, meds)
	assert.Empty(t, meds)
}

func TestService_Failures(t *testing.T) {
	ctx := context.Background()
	called := false
	svc := NewService(extractorFunc(func(context.Context, []byte, string) ([]model.ParsedMedication, error) {
		called = true
		return nil, ErrMalformedResponse
	}), zerolog.Nop())

	_, err := svc.Extract(ctx, nil, "image/png")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
	_, err = svc.Extract(ctx, []byte("x"), "text/plain")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrBadRequest))
	assert.False(t, called)

	_, err = svc.Extract(ctx, []byte("x"), "image/png")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrUpstream))
	assert.True(t, errors.Is(err, ErrMalformedResponse))

	_, err = NewService(nil, zerolog.Nop()).Extract(ctx, []byte("x"), "image/png")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrConfiguration))
}
