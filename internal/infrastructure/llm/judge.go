package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ActivityScanner/internal/domain"
	"ActivityScanner/internal/ports"
)

const defaultSystemPrompt = "Eres un supervisor de calidad de datos. Evalúas muestras de " +
	"actividades para personas mayores extraídas de webs municipales. Responde solo con JSON: " +
	`{"decision": "APPROVE" | "REJECT", "reasoning": "..."}.`

// JudgeClient implements ports.Judge over an OpenAI-compatible chat API. The
// model's verdict is advisory; malformed or unexpected replies degrade to a
// decision string the fusion step treats as "anything else".
type JudgeClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.Judge = (*JudgeClient)(nil)

// Options configure the judge client.
type Options struct {
	Endpoint     string
	Model        string
	APIKey       string
	SystemPrompt string
	Timeout      time.Duration
}

// NewJudgeClient builds a client from configuration.
func NewJudgeClient(opts Options) *JudgeClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	return &JudgeClient{
		endpoint:     opts.Endpoint,
		model:        opts.Model,
		apiKey:       opts.APIKey,
		systemPrompt: safePrompt(opts.SystemPrompt),
		httpClient:   &http.Client{Timeout: opts.Timeout},
	}
}

// Judge posts the event sample with the criteria and parses the verdict.
func (c *JudgeClient) Judge(ctx context.Context, sample []domain.Event, criteria string, priorErrors []string) (domain.Judgment, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return domain.Judgment{}, fmt.Errorf("%w: judge client misconfigured", ports.ErrBadInput)
	}

	prompt, err := buildPrompt(sample, criteria, priorErrors)
	if err != nil {
		return domain.Judgment{}, fmt.Errorf("build judge prompt: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": c.systemPrompt},
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return domain.Judgment{}, fmt.Errorf("marshal judge payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Judgment{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Judgment{}, fmt.Errorf("%w: %v", ports.ErrFetchTimeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return domain.Judgment{}, fmt.Errorf("%w: judge returned %s", ports.ErrNavigationFailed, resp.Status)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.Judgment{}, fmt.Errorf("%w: judge error %s: %s",
			ports.ErrBadInput, resp.Status, strings.TrimSpace(string(detail)))
	}

	var chat struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return domain.Judgment{}, fmt.Errorf("decode judge response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return domain.Judgment{}, fmt.Errorf("judge returned no choices")
	}

	return parseVerdict(chat.Choices[0].Message.Content), nil
}

func buildPrompt(sample []domain.Event, criteria string, priorErrors []string) (string, error) {
	type sampleEvent struct {
		Title     string `json:"titulo"`
		StartDate string `json:"fecha"`
		Category  string `json:"categoria"`
		Price     string `json:"precio"`
		Location  string `json:"lugar"`
	}

	events := make([]sampleEvent, 0, len(sample))
	for _, e := range sample {
		events = append(events, sampleEvent{
			Title:     e.Title,
			StartDate: e.StartDate.Format("2006-01-02"),
			Category:  e.Category,
			Price:     e.Price,
			Location:  e.Location,
		})
	}

	payload, err := json.MarshalIndent(map[string]any{
		"criterios":         criteria,
		"errores_del_ciclo": priorErrors,
		"muestra":           events,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// parseVerdict extracts the decision from the model reply. Anything that is
// not clearly APPROVE or REJECT is passed through verbatim so the fusion
// table can route it to manual review.
func parseVerdict(content string) domain.Judgment {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var verdict struct {
		Decision  string `json:"decision"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &verdict); err != nil {
		return domain.Judgment{Decision: content, Reasoning: "unparseable judge reply"}
	}

	return domain.Judgment{
		Decision:  strings.ToUpper(strings.TrimSpace(verdict.Decision)),
		Reasoning: verdict.Reasoning,
	}
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}
