// Package notify posts price-change and lineup messages to a chat webhook.
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

	"github.com/rs/zerolog"

	"github.com/aatrey56/fpl-squad-planner/internal/model"
	"github.com/aatrey56/fpl-squad-planner/internal/repository"
)

type Webhook struct {
	URL  string
	HTTP *http.Client
	Log  zerolog.Logger
	Now  func() time.Time
}

func NewWebhook(url string, log zerolog.Logger) *Webhook {
	return &Webhook{
		URL:  url,
		HTTP: &http.Client{Timeout: 10 * time.Second},
		Log:  log.With().Str("component", "notify").Logger(),
		Now:  time.Now,
	}
}

// Enabled is false when no URL is configured; sends are then skipped.
func (w *Webhook) Enabled() bool {
	return w != nil && w.URL != ""
}

type field struct {
	Title     string `json:"title"`
	Team      string `json:"team"`
	PlayerID  string `json:"playid"`
	OldValue  string `json:"old_value"`
	NewValue  string `json:"new_value"`
	Direction string `json:"direction"`
}

type attachment struct {
	Color   string `json:"color"`
	Pretext string `json:"pretext"`
	Fields  field  `json:"fields"`
	Footer  string `json:"footer"`
	TS      int64  `json:"ts"`
}

type priceMessage struct {
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments"`
}

// PriceChanges posts one message per change. teamNames maps team id to display name.
func (w *Webhook) PriceChanges(ctx context.Context, changes []repository.PriceChange, teamNames map[int]string) error {
	if !w.Enabled() || len(changes) == 0 {
		return nil
	}
	pretext := fmt.Sprintf("%d player(s) have price changes:", len(changes))
	for _, c := range changes {
		dir := "down"
		if c.NewCost > c.OldCost {
			dir = "up"
		}
		msg := priceMessage{
			Text: "FPL Player Price Changes",
			Attachments: []attachment{{
				Color:   "#36a64f",
				Pretext: pretext,
				Fields: field{
					Title:     c.Player.Name,
					Team:      teamNames[c.Player.Team],
					PlayerID:  fmt.Sprint(c.Player.ID),
					OldValue:  fmt.Sprintf("%.1fM", float64(c.OldCost)/10),
					NewValue:  fmt.Sprintf("%.1fM", float64(c.NewCost)/10),
					Direction: dir,
				},
				Footer: "FPL Price Change Notifier",
				TS:     w.Now().Unix(),
			}},
		}
		if err := w.post(ctx, msg); err != nil {
			return fmt.Errorf("price change %d: %w", c.Player.ID, err)
		}
	}
	w.Log.Info().Int("count", len(changes)).Msg("price changes sent")
	return nil
}

type textMessage struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Lineup posts the selected team as a plain text block.
func (w *Webhook) Lineup(ctx context.Context, lu model.Lineup) error {
	if !w.Enabled() {
		return nil
	}
	return w.post(ctx, textMessage{
		Title: fmt.Sprintf("Gameweek %d lineup", lu.Round),
		Text:  FormatLineup(lu),
	})
}

// FormatLineup renders one line per pick followed by the expected total.
func FormatLineup(lu model.Lineup) string {
	var b strings.Builder
	for _, p := range lu.Picks() {
		tag := ""
		switch {
		case p.IsCaptain:
			tag = " (C)"
		case p.IsViceCaptain:
			tag = " (VC)"
		}
		if p.Slot == len(lu.Starters)+1 {
			b.WriteString("Bench:\n")
		}
		fmt.Fprintf(&b, "%2d. %-3s %s%s %.2f\n", p.Slot, p.Projection.Player.Position,
			p.Projection.Player.Name, tag, p.Projection.ExpectedPoints)
	}
	fmt.Fprintf(&b, "Expected points: %.2f", lu.ExpectedPoints)
	return b.String()
}

func (w *Webhook) post(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, b)
	}
	return nil
}
