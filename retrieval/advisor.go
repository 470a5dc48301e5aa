package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"retrievalagent/geo"
	"retrievalagent/places"
	"retrievalagent/quality"
)

// AdviceRequest данные для выбора ослабления
type AdviceRequest struct {
	Iteration    int
	Verdict      quality.Verdict
	Options      []Relaxation
	Anchor       *geo.Point
	Neighborhood string
}

// Advisor подсказывает, какое из применимых ослаблений выбрать.
// Возвращает индекс в AdviceRequest.Options.
type Advisor interface {
	Advise(ctx context.Context, req AdviceRequest) (int, error)
}

// AdvisorFunc адаптер функции к Advisor
type AdvisorFunc func(ctx context.Context, req AdviceRequest) (int, error)

// Advise вызывает функцию
func (f AdvisorFunc) Advise(ctx context.Context, req AdviceRequest) (int, error) {
	return f(ctx, req)
}

// LLMAdvisorConfig конфигурация советника на основе OpenAI-совместимого API
type LLMAdvisorConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// LLMAdvisor советник, запрашивающий chat/completions
type LLMAdvisor struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

const advisorSystemPrompt = `You help a place search engine for a travel planner decide how to relax its search.
You receive the current coverage and a numbered list of allowed relaxations.
Reply with the number of exactly one option and nothing else.`

var optionNumber = regexp.MustCompile(`\d+`)

// NewLLMAdvisor создает советника
func NewLLMAdvisor(config LLMAdvisorConfig) (*LLMAdvisor, error) {
	if strings.TrimSpace(config.Model) == "" {
		return nil, fmt.Errorf("advisor model is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://openrouter.ai/api/v1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &LLMAdvisor{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		apiKey:     config.APIKey,
		model:      config.Model,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

// Advise запрашивает у модели номер варианта.
// Один запрос без повторов: при любой ошибке контроллер использует детерминированный порядок.
func (a *LLMAdvisor) Advise(ctx context.Context, req AdviceRequest) (int, error) {
	body, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: advisorSystemPrompt},
			{Role: "user", Content: buildAdvicePrompt(req)},
		},
		Temperature: 0,
		MaxTokens:   8,
	})
	if err != nil {
		return -1, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return -1, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return -1, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return -1, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return -1, fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return -1, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return -1, fmt.Errorf("API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return -1, fmt.Errorf("empty completion")
	}

	return parseOption(parsed.Choices[0].Message.Content, len(req.Options))
}

// parseOption извлекает номер варианта (с единицы) и переводит его в индекс
func parseOption(content string, options int) (int, error) {
	match := optionNumber.FindString(content)
	if match == "" {
		return -1, fmt.Errorf("no option number in reply %q", content)
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return -1, fmt.Errorf("invalid option number %q: %w", match, err)
	}
	if n < 1 || n > options {
		return -1, fmt.Errorf("option %d out of range 1..%d", n, options)
	}
	return n - 1, nil
}

func buildAdvicePrompt(req AdviceRequest) string {
	var b strings.Builder
	v := req.Verdict

	fmt.Fprintf(&b, "Iteration: %d\n", req.Iteration)
	if req.Neighborhood != "" {
		fmt.Fprintf(&b, "Accommodation neighbourhood: %s\n", req.Neighborhood)
	}
	if req.Anchor != nil {
		fmt.Fprintf(&b, "Accommodation location: %.5f, %.5f\n", req.Anchor.Latitude, req.Anchor.Longitude)
	}
	for _, kind := range places.Kinds() {
		fmt.Fprintf(&b, "%s: have %d of %d, clusters below share: %s\n",
			kind, v.CountsByKind[kind], v.Required[kind], strings.Join(v.GapsByKind[kind], ", "))
	}
	fmt.Fprintf(&b, "Relevance: %.2f\n\nOptions:\n", v.RelevanceScore)
	for i, o := range req.Options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, o.String())
	}
	return b.String()
}
