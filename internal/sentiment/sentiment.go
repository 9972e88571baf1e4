// Package sentiment supplies the optional external sentiment opinion. The
// provider is an outbound collaborator: a timeout or failure degrades to a
// neutral opinion and never blocks or fails the replay.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kukhmax/ai-trade/internal/analysis"
)

// Provider supplies a sentiment opinion for a symbol. Implementations must
// respect ctx and return a neutral opinion instead of an error when no
// judgment is available.
type Provider interface {
	Opinion(ctx context.Context, symbol string) analysis.Opinion
}

// None is the no-op provider used when sentiment analysis is disabled.
type None struct{}

func (None) Opinion(ctx context.Context, symbol string) analysis.Opinion {
	return analysis.NeutralOpinion(analysis.MethodSentiment, "sentiment disabled")
}

// Static returns a fixed opinion; used for backtests with a preloaded
// per-run sentiment score and in tests.
type Static struct {
	Direction analysis.Direction
	Strength  float64
	Reason    string
}

func (s Static) Opinion(ctx context.Context, symbol string) analysis.Opinion {
	return analysis.Opinion{
		Method:    analysis.MethodSentiment,
		Direction: s.Direction,
		Strength:  s.Strength,
		Rationale: s.Reason,
	}
}

// Client calls an OpenAI-compatible chat-completions endpoint (DeepSeek by
// default) to score recent market news for a symbol.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
	http    *http.Client
}

const (
	DefaultBaseURL = "https://api.deepseek.com/v1"
	DefaultModel   = "deepseek-chat"
	DefaultTimeout = 20 * time.Second
)

func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat respFormat    `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type sentimentPayload struct {
	OverallSentiment string   `json:"overall_sentiment"`
	Confidence       float64  `json:"confidence"`
	SentimentScore   float64  `json:"sentiment_score"`
	PositiveFactors  []string `json:"positive_factors"`
	NegativeFactors  []string `json:"negative_factors"`
}

// Opinion queries the model for a sentiment judgment. Any failure path
// degrades to neutral.
func (c *Client) Opinion(ctx context.Context, symbol string) analysis.Opinion {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := c.query(ctx, symbol)
	if err != nil {
		log.Printf("sentiment.Opinion | degrading to neutral for %s: %v", symbol, err)
		return analysis.NeutralOpinion(analysis.MethodSentiment, "sentiment unavailable")
	}

	var dir analysis.Direction
	switch strings.ToUpper(payload.OverallSentiment) {
	case "BULLISH":
		dir = analysis.Bullish
	case "BEARISH":
		dir = analysis.Bearish
	default:
		return analysis.NeutralOpinion(analysis.MethodSentiment, "neutral news flow")
	}

	strength := payload.Confidence
	if strength < 0 {
		strength = 0
	} else if strength > 1 {
		strength = 1
	}

	rationale := fmt.Sprintf("%s news flow", dir)
	if dir == analysis.Bullish && len(payload.PositiveFactors) > 0 {
		rationale = fmt.Sprintf("%s (%s)", rationale, strings.Join(payload.PositiveFactors, ", "))
	} else if dir == analysis.Bearish && len(payload.NegativeFactors) > 0 {
		rationale = fmt.Sprintf("%s (%s)", rationale, strings.Join(payload.NegativeFactors, ", "))
	}

	return analysis.Opinion{
		Method:    analysis.MethodSentiment,
		Direction: dir,
		Strength:  strength,
		Rationale: rationale,
	}
}

func (c *Client) query(ctx context.Context, symbol string) (*sentimentPayload, error) {
	prompt := fmt.Sprintf(`Analyze the current market sentiment for %s.

Return your analysis in JSON with this structure:
{
  "overall_sentiment": "BULLISH/BEARISH/NEUTRAL",
  "confidence": 0.0-1.0,
  "sentiment_score": -1.0 to 1.0,
  "positive_factors": [],
  "negative_factors": []
}

Be objective and focus on factual impact on the price.`, symbol)

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a financial sentiment analysis expert. Respond with JSON only."},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: respFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling sentiment API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sentiment API status %d: %s", resp.StatusCode, string(raw))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("empty response from sentiment API")
	}

	var payload sentimentPayload
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &payload); err != nil {
		return nil, fmt.Errorf("decoding sentiment payload: %w", err)
	}
	return &payload, nil
}
