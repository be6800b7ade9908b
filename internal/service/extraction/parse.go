package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jwalitptl/medtracker/internal/model"
)

var (
	ErrEmptyResponse     = errors.New("model returned no text")
	ErrMalformedResponse = errors.New("model response is not a JSON array of medications")
)

// ParseResponse decodes the model's JSON array. Surrounding whitespace and a markdown
// code fence are tolerated; string fields are trimmed.
func ParseResponse(text string) ([]model.ParsedMedication, error) {
	text = stripFence(strings.TrimSpace(text))
	if text == "" {
		return nil, ErrEmptyResponse
	}

	var meds []model.ParsedMedication
	if err := json.Unmarshal([]byte(text), &meds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if meds == nil {
		return nil, ErrMalformedResponse
	}

	for i := range meds {
		meds[i].Name = strings.TrimSpace(meds[i].Name)
		meds[i].Dosage = strings.TrimSpace(meds[i].Dosage)
		meds[i].Quantity = strings.TrimSpace(meds[i].Quantity)
		meds[i].Instructions = strings.TrimSpace(meds[i].Instructions)
	}
	return meds, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
