// Package ai asks a language model for a product trend score. It is optional:
// the trend engine falls back to its rule score whenever this fails.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/trend"
)

var ErrInvalidAnswer = errors.New("invalid trend answer")

// Answer is the structured output requested from the model.
type Answer struct {
	Score  float64 `json:"score" jsonschema:"description=Trend score between 0.0 and 10.0"`
	Reason string  `json:"reason" jsonschema:"description=One short sentence explaining the score"`
}

func (a *Answer) Normalize() {
	a.Reason = strings.TrimSpace(a.Reason)
	a.Score = math.Round(a.Score*10) / 10
}

func (a Answer) Validate() error {
	if math.IsNaN(a.Score) || a.Score < 0 || a.Score > 10 {
		return fmt.Errorf("%w: score %v out of range", ErrInvalidAnswer, a.Score)
	}
	if a.Reason == "" {
		return fmt.Errorf("%w: empty reason", ErrInvalidAnswer)
	}
	return nil
}

type Scorer struct {
	client *openai.Client
	model  shared.ResponsesModel
}

// NewScorer returns nil when apiKey is empty.
func NewScorer(apiKey string, model string) *Scorer {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	if model == "" {
		model = string(shared.ChatModelGPT4o)
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Scorer{client: &client, model: shared.ResponsesModel(model)}
}

func (s *Scorer) Assess(ctx context.Context, in trend.Input) (domain.TrendAssessment, error) {
	schemaMap, err := answerSchema()
	if err != nil {
		return domain.TrendAssessment{}, err
	}

	params := responses.ResponseNewParams{
		Model: s.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(buildPrompt(in)),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "trend_assessment",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("Demand trend score for one retail product"),
				},
			},
		},
	}

	resp, err := s.client.Responses.New(ctx, params)
	if err != nil {
		return domain.TrendAssessment{}, fmt.Errorf("openai responses error: %w", err)
	}

	answer, err := ParseAnswer(resp.OutputText())
	if err != nil {
		return domain.TrendAssessment{}, err
	}
	return domain.TrendAssessment{Score: answer.Score, Source: domain.TrendSourceAI, Reason: answer.Reason}, nil
}

// ParseAnswer decodes and validates the model output.
func ParseAnswer(content string) (Answer, error) {
	if strings.TrimSpace(content) == "" {
		return Answer{}, fmt.Errorf("%w: empty response content", ErrInvalidAnswer)
	}
	var answer Answer
	if err := json.Unmarshal([]byte(content), &answer); err != nil {
		return Answer{}, fmt.Errorf("failed to parse completion: %w", err)
	}
	answer.Normalize()
	if err := answer.Validate(); err != nil {
		return Answer{}, err
	}
	return answer, nil
}

func buildPrompt(in trend.Input) string {
	return fmt.Sprintf(`You are a retail demand analyst.
Score the market trend of one product from 0.0 (no demand) to 10.0 (very high demand).

Product: %s
Category: %s
Current stock: %d units
Batches received in the last 30 days: %d
Bill lines in the last 30 days: %d
Store order requests in the last 30 days: %d
Sales and requests in the last 7 days: %d
Month: %s
Rule-based score for reference: %.1f

Consider seasonal demand for the category and the stock level.`,
		in.Product.Name,
		in.Product.Category,
		in.Signals.Stock,
		in.Signals.StockMovements30d,
		in.Signals.Sales30d,
		in.Signals.Requests30d,
		in.Signals.Activity7d,
		in.At.Format("January"),
		in.RuleScore,
	)
}

func answerSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaJSON, err := json.Marshal(reflector.Reflect(Answer{}))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return schemaMap, nil
}
