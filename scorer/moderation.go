package scorer

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ModerationClient defines the part of the OpenAI API used by ModerationTransport
type ModerationClient interface {
	Moderations(ctx context.Context, request openai.ModerationRequest) (openai.ModerationResponse, error)
}

// ModerationTransport answers AnalyzeComment requests with the OpenAI
// moderation endpoint. Category scores are folded onto attributes by taking
// the highest related category; attributes with no mapping are left out of
// the response.
type ModerationTransport struct {
	client ModerationClient
	model  string
}

// NewModerationTransport creates a transport using an OpenAI API key. An
// empty baseURL keeps the OpenAI default; a nil client keeps go-openai's.
func NewModerationTransport(apiKey, baseURL string, client *http.Client) *ModerationTransport {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	if client != nil {
		config.HTTPClient = client
	}
	return NewModerationTransportWithClient(openai.NewClientWithConfig(config), openai.ModerationTextLatest)
}

// NewModerationTransportWithClient creates a transport with a custom client and model
func NewModerationTransportWithClient(client ModerationClient, model string) *ModerationTransport {
	return &ModerationTransport{client: client, model: model}
}

// Analyze scores the comment text and converts the first moderation result
func (t *ModerationTransport) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResponse, error) {
	resp, err := t.client.Moderations(ctx, openai.ModerationRequest{
		Input: req.Comment.Text,
		Model: t.model,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI moderation request failed: %w", err)
	}

	out := &AnalyzeResponse{
		AttributeScores: make(map[Attribute]AttributeScores, len(req.RequestedAttributes)),
		Languages:       req.Languages,
		ClientToken:     req.ClientToken,
	}
	if len(resp.Results) == 0 {
		// No attribute scores; extraction reports the response as malformed
		return out, nil
	}

	categories := categoryScores(resp.Results[0].CategoryScores)
	for attr := range req.RequestedAttributes {
		value, ok := moderationScore(attr, categories)
		if !ok {
			continue
		}
		v := value
		out.AttributeScores[attr] = AttributeScores{
			SummaryScore: &SummaryScore{Value: &v, Type: "PROBABILITY"},
		}
	}
	return out, nil
}

func categoryScores(s openai.ResultCategoryScores) map[string]float64 {
	return map[string]float64{
		"hate":                   float64(s.Hate),
		"hate/threatening":       float64(s.HateThreatening),
		"harassment":             float64(s.Harassment),
		"harassment/threatening": float64(s.HarassmentThreatening),
		"self-harm":              float64(s.SelfHarm),
		"sexual":                 float64(s.Sexual),
		"sexual/minors":          float64(s.SexualMinors),
		"violence":               float64(s.Violence),
		"violence/graphic":       float64(s.ViolenceGraphic),
	}
}

// moderationCategories lists the categories folded into each attribute.
// Toxicity has no entry and takes the maximum over all categories.
var moderationCategories = map[Attribute][]string{
	IdentityAttack:   {"hate", "hate/threatening"},
	Insult:           {"harassment"},
	Threat:           {"harassment/threatening", "hate/threatening", "violence"},
	SexuallyExplicit: {"sexual", "sexual/minors"},
}

func moderationScore(attr Attribute, categories map[string]float64) (float64, bool) {
	if attr == Toxicity {
		return maxScore(categories, nil), true
	}
	names, ok := moderationCategories[attr]
	if !ok {
		return 0, false
	}
	return maxScore(categories, names), true
}

// maxScore returns the highest score among names, or among all categories when names is nil
func maxScore(categories map[string]float64, names []string) float64 {
	var best float64
	if names == nil {
		for _, v := range categories {
			best = max(best, v)
		}
		return best
	}
	for _, name := range names {
		best = max(best, categories[name])
	}
	return best
}
