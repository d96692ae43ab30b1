package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ActivityScanner/internal/domain"
	"ActivityScanner/internal/ports"
)

// Notifier alerts an operator chat when a run needs eyes: manual review
// decisions and error outcomes. Approved and rejected runs stay quiet.
type Notifier struct {
	botToken string
	chatID   string
	client   *http.Client
	logger   *slog.Logger
}

var _ ports.RunObserver = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string, logger *slog.Logger) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger,
	}
}

// ObserveRun posts an alert for runs that ended in manual review or error.
// Delivery failures are logged, never propagated into the pipeline.
func (n *Notifier) ObserveRun(summary domain.RunSummary) {
	switch summary.Decision {
	case domain.StatusManualReview, domain.StatusError:
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := n.send(ctx, formatAlert(summary)); err != nil && n.logger != nil {
		n.logger.Warn("telegram alert failed", "run_id", summary.RunID, "error", err)
	}
}

func formatAlert(summary domain.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* — %s\n", summary.Decision, summary.SourceName)
	fmt.Fprintf(&b, "Run: `%s`\n", summary.RunID)
	if summary.Reasoning != "" {
		fmt.Fprintf(&b, "Motivo: %s\n", summary.Reasoning)
	}
	fmt.Fprintf(&b, "Aprobados: %d, rechazados: %d\n", summary.EventsApproved, summary.EventsRejected)
	if len(summary.Errors) > 0 {
		fmt.Fprintf(&b, "Errores (%d):\n", len(summary.Errors))
		for _, e := range summary.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	return b.String()
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}
