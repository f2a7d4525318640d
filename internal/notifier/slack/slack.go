package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shampsdev/gopadel-sub001/internal/catalog"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
	"github.com/shampsdev/gopadel-sub001/internal/notifier"
	"github.com/slack-go/slack"
)

const channelName = "slack"

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier posts organizer-facing participation changes to a Slack channel.
type Notifier struct {
	api       slackClient
	channelID string
	dryRun    bool
	metrics   metrics.Metrics
	location  *time.Location
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, dryRun bool, metrics metrics.Metrics) *Notifier {
	return NewNotifierWithAPI(slack.New(token), channelID, dryRun, metrics)
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, dryRun bool, metrics metrics.Metrics) *Notifier {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		loc = time.UTC
	}
	return &Notifier{
		api:       api,
		channelID: channelID,
		dryRun:    dryRun,
		metrics:   metrics,
		location:  loc,
	}
}

func (s *Notifier) sendMessage(ctx context.Context, message slack.Message, dryRun bool) (string, string, error) {
	if dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		s.metrics.IncNotifFailed(channelName)
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncNotifSent(channelName)
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

// Notify posts approval requests and freed slots to the organizer feed.
// Messages addressed to a single player are left to direct channels.
func (s *Notifier) Notify(ctx context.Context, n notifier.Notification) error {
	var msg slack.Message
	switch n.Kind {
	case notifier.KindApprovalRequested:
		msg = s.formatApprovalRequest(n)
	case notifier.KindSlotFreed:
		if n.Recipient != nil {
			return nil
		}
		msg = s.formatSlotFreed(n)
	default:
		return nil
	}
	_, _, err := s.sendMessage(ctx, msg, s.dryRun)
	return err
}

// SendEventSummary posts the summary of one event to the feed.
func (s *Notifier) SendEventSummary(ctx context.Context, view *catalog.EventView) error {
	_, _, err := s.sendMessage(ctx, s.formatEventSummary(view), s.dryRun)
	return err
}

// FormatEventSummaryResponse formats an event summary for a slash command response.
func (s *Notifier) FormatEventSummaryResponse(view *catalog.EventView) (any, error) {
	return s.formatEventSummary(view), nil
}

// FormatEventNotFoundResponse formats the reply for an unknown event id.
func (s *Notifier) FormatEventNotFoundResponse(query string) (any, error) {
	text := fmt.Sprintf("No event found for '%s'.", query)
	if strings.TrimSpace(query) == "" {
		text = "Usage: /event <event id>"
	}
	return slack.NewBlockMessage(
		slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", text, true, false), nil, nil),
	), nil
}

func (s *Notifier) formatApprovalRequest(n notifier.Notification) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🎾 Approval requested", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", notifier.Text(n), true, false), nil, nil))

	if n.Subject != nil {
		ctxText := fmt.Sprintf("Rank %.2f", n.Subject.Rank)
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", ctxText, true, false)))
	}
	return slack.NewBlockMessage(blocks...)
}

func (s *Notifier) formatSlotFreed(n notifier.Notification) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🟢 Slot freed", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", notifier.Text(n), true, false), nil, nil))
	if n.Event != nil {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject("plain_text", s.when(n.Event), true, false)))
	}
	return slack.NewBlockMessage(blocks...)
}

func (s *Notifier) formatEventSummary(view *catalog.EventView) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", fmt.Sprintf("🏆 %s", view.Name), true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	details := fmt.Sprintf("Type: %s\nStatus: %s\nTime: %s\nPlayers: %d/%d",
		view.Type, view.Status, s.when(&view.Event), view.Occupied, view.MaxUsers)
	if !view.Free() {
		details += fmt.Sprintf("\nPrice: %s", view.Price.StringFixed(2))
	}
	if view.RankMin != nil && view.RankMax != nil {
		details += fmt.Sprintf("\nRank: %.1f to %.1f", *view.RankMin, *view.RankMax)
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", details, true, false), nil, nil))

	if len(view.Leaderboard) > 0 {
		lines := make([]string, 0, len(view.Leaderboard))
		for _, entry := range view.Leaderboard {
			lines = append(lines, fmt.Sprintf("%s %s", medal(entry.Place), entry.UserID))
		}
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "Podium:\n"+strings.Join(lines, "\n"), true, false), nil, nil))
	}
	return slack.NewBlockMessage(blocks...)
}

func (s *Notifier) when(e *lifecycle.Event) string {
	if e.StartTime.IsZero() {
		return "not scheduled"
	}
	return e.StartTime.In(s.location).Format("Monday 02 Jan, 15:04")
}

func medal(place int) string {
	switch place {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	}
	return fmt.Sprintf("%d.", place)
}
