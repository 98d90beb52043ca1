package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Enhancer rewrites a raw transcript into polished text.
type Enhancer interface {
	Enhance(ctx context.Context, transcript, prompt, translateTo string) (string, error)
}

const defaultEnhancementPrompt = `You are an expert editor. Clean up the following raw audio transcript:
fix punctuation and capitalization, remove filler words and false starts,
and break the text into readable paragraphs. Preserve the speaker's meaning
and any timestamps exactly as they appear. Return only the cleaned transcript.`

// GeminiEnhancer enhances transcripts through the Gemini API.
type GeminiEnhancer struct {
	client *genai.Client
	model  string
}

func NewGeminiEnhancer(ctx context.Context, apiKey, model string) (*GeminiEnhancer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiEnhancer{client: client, model: model}, nil
}

func (e *GeminiEnhancer) Enhance(ctx context.Context, transcript, prompt, translateTo string) (string, error) {
	model := e.client.GenerativeModel(e.model)
	model.SetTemperature(0.2)

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(transcript, prompt, translateTo)))
	if err != nil {
		return "", fmt.Errorf("enhancement failed: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return "", fmt.Errorf("enhancement failed: %w", err)
	}
	return text, nil
}

func (e *GeminiEnhancer) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// buildPrompt assembles the instruction block and appends the transcript.
// A custom prompt replaces the default instructions entirely.
func buildPrompt(transcript, prompt, translateTo string) string {
	var b strings.Builder
	if prompt != "" {
		b.WriteString(prompt)
	} else {
		b.WriteString(defaultEnhancementPrompt)
	}
	if translateTo != "" {
		fmt.Fprintf(&b, "\n\nAfter cleaning, translate the transcript to %s.", translateTo)
	}
	b.WriteString("\n\nTranscript:\n\n")
	b.WriteString(transcript)
	return b.String()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.TrimSpace(strings.Join(parts, "")), nil
}
