// Package notify pushes run digests to Telegram chats.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jobsift/jobsift/pkg/model"
)

const defaultAPIBase = "https://api.telegram.org"

// Config controls which runs produce a notification and what it
// contains.
type Config struct {
	// Enabled gates notification delivery entirely.
	Enabled bool

	// Token is the bot token.
	Token string

	// ChatIDs lists the destination chats. Each chat receives the
	// same digest.
	ChatIDs []string

	// TopN caps the number of jobs listed in a digest.
	TopN int

	// MinScore drops jobs below this score from the digest.
	MinScore int
}

// Notifier delivers digests over the Telegram bot API.
type Notifier struct {
	cfg     Config
	apiBase string
	client  *http.Client
	log     *zap.Logger
}

// New creates a notifier. Returns an error when notifications are
// enabled but the bot credentials are incomplete.
func New(cfg Config, log *zap.Logger) (*Notifier, error) {
	if cfg.Enabled {
		if strings.TrimSpace(cfg.Token) == "" {
			return nil, fmt.Errorf("telegram token is required")
		}
		if len(cfg.ChatIDs) == 0 {
			return nil, fmt.Errorf("at least one telegram chat id is required")
		}
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 10
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Notifier{
		cfg:     cfg,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}, nil
}

// NotifyRun sends a digest of the run to every configured chat. All
// chats are attempted; the first delivery error is returned.
func (n *Notifier) NotifyRun(ctx context.Context, summary *model.SearchSummary, jobs []model.Job) error {
	if !n.cfg.Enabled {
		return nil
	}

	text := n.digest(summary, jobs)
	if text == "" {
		n.log.Debug("nothing to notify")
		return nil
	}

	// Plain group: a failed chat must not cancel deliveries to the
	// others.
	var g errgroup.Group
	for _, chatID := range n.cfg.ChatIDs {
		g.Go(func() error {
			if err := n.sendMessage(ctx, chatID, text); err != nil {
				n.log.Warn("telegram delivery failed",
					zap.String("chat_id", chatID),
					zap.Error(err))
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// digest renders the message body. Returns "" when no job clears the
// score floor.
func (n *Notifier) digest(summary *model.SearchSummary, jobs []model.Job) string {
	var picked []model.Job
	for _, j := range jobs {
		if j.RelevanceScore >= n.cfg.MinScore {
			picked = append(picked, j)
		}
		if len(picked) == n.cfg.TopN {
			break
		}
	}
	if len(picked) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d new jobs (%d relevant of %d unique)\n",
		summary.NewJobs, summary.RelevantJobs, summary.UniqueJobs)
	for i, j := range picked {
		fmt.Fprintf(&b, "\n%d. %s at %s", i+1, j.Title, j.Company)
		if j.Location != "" {
			fmt.Fprintf(&b, " (%s)", j.Location)
		}
		fmt.Fprintf(&b, " [score %d]", j.RelevanceScore)
		if j.URL != "" {
			fmt.Fprintf(&b, "\n%s", j.URL)
		}
	}
	return b.String()
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

func (n *Notifier) sendMessage(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var parsed sendMessageResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if !parsed.OK {
		return fmt.Errorf("telegram rejected message (status %d): %s",
			resp.StatusCode, parsed.Description)
	}
	return nil
}
