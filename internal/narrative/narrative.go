// Package narrative produces the one-line recommendation attached to
// point queries. When an OpenAI key is configured the text is
// generated; otherwise a fixed phrase per score band is used, so the
// API works without the key.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"chromasky/internal/httputil"
	"chromasky/internal/models"
)

// Generator writes afterglow recommendations.
type Generator struct {
	client  openai.Client
	model   string
	enabled bool
}

// NewGenerator reads OPENAI_API_KEY; without it the generator still
// works but only returns the static band phrases.
func NewGenerator() *Generator {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return &Generator{}
	}
	return &Generator{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(httputil.NewAPIClient()),
		),
		model:   openai.ChatModelGPT4oMini,
		enabled: true,
	}
}

// Recommend returns a short recommendation for the given scores.
// Generation failures fall back to the static phrase; a point query
// never fails because of the narrative.
func (g *Generator) Recommend(ctx context.Context, event models.Event, fs models.FactorScores) string {
	if !g.enabled {
		return StaticRecommendation(fs.Index)
	}
	text, err := g.generate(ctx, event, fs)
	if err != nil {
		log.Printf("narrative: generation failed, using static text: %v", err)
		return StaticRecommendation(fs.Index)
	}
	return text
}

func (g *Generator) generate(ctx context.Context, event models.Event, fs models.FactorScores) (string, error) {
	kind := "sunset"
	if event.IsSunrise() {
		kind = "sunrise"
	}
	prompt := fmt.Sprintf(
		"The afterglow index for the coming %s is %.1f out of 10. "+
			"Factor breakdown: canvas cloud %.2f, light path clarity %.2f, air quality %.2f, cloud altitude %.2f. "+
			"Write one short sentence (max 20 words) telling a photographer whether it is worth heading out. No emoji.",
		kind, fs.Index, fs.Canvas, fs.LightPath, fs.AirQuality, fs.CloudAltitude)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a terse weather assistant for sunset chasers."),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("narrative generation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// StaticRecommendation maps an index value to a fixed phrase.
func StaticRecommendation(index float64) string {
	switch {
	case index >= 8:
		return "Exceptional conditions expected; do not miss this one."
	case index >= 6:
		return "Excellent potential for a spectacular sky."
	case index >= 4:
		return "Decent chance of color; worth a look."
	case index >= 2:
		return "Some color possible, but keep expectations modest."
	default:
		return "Unlikely to produce any afterglow tonight."
	}
}
