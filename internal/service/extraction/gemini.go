package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/pkg/metrics"
)

const DefaultModel = "gemini-2.5-flash"

const prompt = `You are an expert medical assistant. Analyze the provided prescription file (image or PDF). ` +
	`Extract the following details for each medication listed: name, dosage, quantity, and the full instructions ` +
	`for taking the medication. Ignore all other personal patient information and general advice. ` +
	`Return the result as a valid JSON array, where each object represents one medication. ` +
	`Do not include any text outside of the JSON array.`

var responseSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name": {
				Type:        genai.TypeString,
				Description: "Full name of the medication, including the brand name in parentheses if available. Example: 'Cefprozil (MESOGOLD)'",
			},
			"dosage": {
				Type:        genai.TypeString,
				Description: "Dosage strength. Example: '500mg'",
			},
			"quantity": {
				Type:        genai.TypeString,
				Description: "Total quantity. Example: '20 tablets' or '30 sachets'",
			},
			"instructions": {
				Type:        genai.TypeString,
				Description: "Detailed instructions on how and when to take the medication.",
			},
		},
		Required: []string{"name", "dosage", "quantity", "instructions"},
	},
}

// generator is the slice of *genai.Models the extractor uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiExtractor sends the file inline to a Gemini model constrained to a JSON array
// response.
type GeminiExtractor struct {
	models  generator
	model   string
	metrics *metrics.Metrics
}

func NewGeminiExtractor(ctx context.Context, apiKey, modelName string, m *metrics.Metrics) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiExtractor{models: client.Models, model: modelName, metrics: m}, nil
}

func (e *GeminiExtractor) Extract(ctx context.Context, data []byte, mimeType string) (meds []model.ParsedMedication, err error) {
	defer func(start time.Time) {
		status := "ok"
		if err != nil {
			status = "error"
		}
		e.metrics.ObserveExtraction(status, start)
	}(time.Now())

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	resp, err := e.models.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	return ParseResponse(responseText(resp))
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
