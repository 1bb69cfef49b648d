package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adspilot/core/pkg/currency"
	"github.com/adspilot/core/pkg/domain"
	"github.com/adspilot/core/pkg/redact"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// wireProposal is the analyst's JSON shape for one proposal, parsed into
// domain.Proposal after validation — kept separate from domain.Proposal so
// a malformed wire value (bad enum string, missing field) fails at the
// json.Unmarshal/validate boundary instead of silently zero-valuing a
// domain field.
type wireProposal struct {
	CampaignExternalID string  `json:"campaign_external_id"`
	Kind               string  `json:"kind"`
	FromState          string  `json:"from_state"`
	ToState             string  `json:"to_state"`
	Confidence         float64 `json:"confidence"`
	Reasoning          string  `json:"reasoning"`
	ExpectedSpendDelta string  `json:"expected_spend_delta"`
	ExpectedRevenueDelta string `json:"expected_revenue_delta"`
	ExpectedConversionsDelta float64 `json:"expected_conversions_delta"`
	Notes              string  `json:"notes"`
}

type wireResponse struct {
	OverallHealth string         `json:"overall_health"`
	Proposals     []wireProposal `json:"proposals"`
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"overall_health": {
			Type: genai.TypeString,
			Enum: []string{"EXCELLENT", "GOOD", "FAIR", "POOR", "CRITICAL"},
		},
		"proposals": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"campaign_external_id":      {Type: genai.TypeString},
					"kind":                       {Type: genai.TypeString, Enum: []string{"PAUSE", "RESUME", "INCREASE_BUDGET", "DECREASE_BUDGET", "REALLOCATE", "CREATE_CAMPAIGN", "STRATEGY_CHANGE"}},
					"from_state":                 {Type: genai.TypeString},
					"to_state":                   {Type: genai.TypeString},
					"confidence":                 {Type: genai.TypeNumber},
					"reasoning":                  {Type: genai.TypeString},
					"expected_spend_delta":       {Type: genai.TypeString},
					"expected_revenue_delta":     {Type: genai.TypeString},
					"expected_conversions_delta": {Type: genai.TypeNumber},
					"notes":                      {Type: genai.TypeString},
				},
				Required: []string{"campaign_external_id", "kind", "from_state", "to_state", "confidence"},
			},
		},
	},
	Required: []string{"overall_health", "proposals"},
}

// GenAIClient implements Client over google.golang.org/genai's
// GenerateContent, constraining the model to the response schema above so
// parsing never has to guess at shape.
type GenAIClient struct {
	client   *genai.Client
	model    string
	redactor *redact.Redactor
	timeout  time.Duration
	now      func() time.Time
}

// NewGenAIClient creates a client against the given API key. model
// defaults to "gemini-2.0-flash" when empty.
func NewGenAIClient(ctx context.Context, apiKey, model string) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("analyst: API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("analyst: create genai client: %w", err)
	}

	return &GenAIClient{
		client:   client,
		model:    model,
		redactor: redact.New(),
		timeout:  DefaultTimeout,
		now:      time.Now,
	}, nil
}

// Analyse sends req to the model and parses its structured reply. The
// request's free-text fields are redacted before leaving the process; the
// call enforces c.timeout regardless of the caller's own deadline, taking
// whichever is sooner.
func (c *GenAIClient) Analyse(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := c.buildPrompt(req)

	result, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   responseSchema,
		},
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Response{}, ErrTimeout
		}
		return Response{}, fmt.Errorf("analyst: generate content: %w", err)
	}

	text, err := extractText(result)
	if err != nil {
		return Response{}, err
	}

	return parseResponse(text, req.CampaignRef, c.now())
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: empty candidate", ErrMalformedResponse)
	}
	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		text += part.Text
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty text part", ErrMalformedResponse)
	}
	return text, nil
}

func parseResponse(text string, ref domain.CampaignRef, now time.Time) (Response, error) {
	var wire wireResponse
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	health := domain.OverallHealth(wire.OverallHealth)
	if !health.IsValid() {
		return Response{}, fmt.Errorf("%w: unknown overall_health %q", ErrMalformedResponse, wire.OverallHealth)
	}

	proposals := make([]domain.Proposal, 0, len(wire.Proposals))
	for _, wp := range wire.Proposals {
		p, err := wp.toDomain(ref, now)
		if err != nil {
			return Response{}, err
		}
		proposals = append(proposals, p)
	}

	return Response{Proposals: proposals, OverallHealth: health}, nil
}

func (wp wireProposal) toDomain(ref domain.CampaignRef, now time.Time) (domain.Proposal, error) {
	kind := domain.ProposalKind(wp.Kind)
	if !kind.IsValid() {
		return domain.Proposal{}, fmt.Errorf("%w: unknown proposal kind %q", ErrMalformedResponse, wp.Kind)
	}
	if wp.Confidence < 0 || wp.Confidence > 1 {
		return domain.Proposal{}, fmt.Errorf("%w: confidence %.4f out of [0,1]", ErrMalformedResponse, wp.Confidence)
	}

	spendDelta, _ := currency.FromDecimalString(wp.ExpectedSpendDelta)
	revenueDelta, _ := currency.FromDecimalString(wp.ExpectedRevenueDelta)

	return domain.Proposal{
		ID:          uuid.NewString(),
		CampaignRef: ref,
		Kind:        kind,
		FromState:   wp.FromState,
		ToState:     wp.ToState,
		Confidence:  wp.Confidence,
		Reasoning:   wp.Reasoning,
		ExpectedImpact: domain.ExpectedImpact{
			SpendDelta:       spendDelta,
			RevenueDelta:     revenueDelta,
			ConversionsDelta: wp.ExpectedConversionsDelta,
			Notes:            wp.Notes,
		},
		ProducedAt: now,
	}, nil
}
