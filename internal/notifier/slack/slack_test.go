package slack

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shampsdev/gopadel-sub001/internal/catalog"
	"github.com/shampsdev/gopadel-sub001/internal/lifecycle"
	"github.com/shampsdev/gopadel-sub001/internal/metrics"
	"github.com/shampsdev/gopadel-sub001/internal/notifier"
	"github.com/shopspring/decimal"
	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSlackAPI is a mock implementation of the parts of the slack.Client that we use.
type mockSlackAPI struct {
	postMessageContextFunc func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
	calls                  int
}

func (m *mockSlackAPI) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.calls++
	if m.postMessageContextFunc != nil {
		return m.postMessageContextFunc(ctx, channelID, options...)
	}
	return "C12345", "123456789.12345", nil
}

func TestSendMessage_DryRun(t *testing.T) {
	m := metrics.NewMock()
	// Pass nil for the api, as it shouldn't be called in dry-run mode.
	n := NewNotifierWithAPI(nil, "C123", true, m)

	_, _, err := n.sendMessage(context.Background(), slackapi.NewBlockMessage(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, m.NotifSent(channelName))
}

func TestSendMessage_Success(t *testing.T) {
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			assert.Equal(t, "C123", channelID)
			return "C123", "ts123", nil
		},
	}
	m := metrics.NewMock()
	n := NewNotifierWithAPI(api, "C123", false, m)

	msg := slackapi.NewBlockMessage(slackapi.NewSectionBlock(slackapi.NewTextBlockObject("plain_text", "hello", false, false), nil, nil))
	_, _, err := n.sendMessage(context.Background(), msg, false)

	require.NoError(t, err)
	assert.Equal(t, 1, api.calls)
	assert.Equal(t, 1, m.NotifSent(channelName))
	assert.Equal(t, 0, m.NotifFailed(channelName))
}

func TestSendMessage_Failure(t *testing.T) {
	expectedErr := errors.New("slack API is down")
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			return "", "", expectedErr
		},
	}
	m := metrics.NewMock()
	n := NewNotifierWithAPI(api, "C123", false, m)

	_, _, err := n.sendMessage(context.Background(), slackapi.NewBlockMessage(), false)

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.Equal(t, 0, m.NotifSent(channelName))
	assert.Equal(t, 1, m.NotifFailed(channelName))
}

func TestNotify_PostsOnlyOrganizerKinds(t *testing.T) {
	event := &lifecycle.Event{Name: "Sunday Game", StartTime: time.Date(2026, 7, 5, 18, 0, 0, 0, time.UTC)}
	user := &lifecycle.User{ID: "u1", Name: "Ana", Rank: 3.5}

	tests := []struct {
		name      string
		n         notifier.Notification
		wantPosts int
	}{
		{"approval requested", notifier.Notification{Kind: notifier.KindApprovalRequested, Event: event, Subject: user}, 1},
		{"slot freed feed", notifier.Notification{Kind: notifier.KindSlotFreed, Event: event}, 1},
		{"slot freed direct", notifier.Notification{Kind: notifier.KindSlotFreed, Event: event, Recipient: user}, 0},
		{"confirmed", notifier.Notification{Kind: notifier.KindConfirmed, Event: event, Recipient: user}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockSlackAPI{}
			n := NewNotifierWithAPI(api, "C123", false, metrics.NewMock())
			require.NoError(t, n.Notify(context.Background(), tt.n))
			assert.Equal(t, tt.wantPosts, api.calls)
		})
	}
}

func TestFormatApprovalRequest(t *testing.T) {
	n := NewNotifierWithAPI(nil, "C123", true, metrics.NewMock())
	msg := n.formatApprovalRequest(notifier.Notification{
		Kind:    notifier.KindApprovalRequested,
		Event:   &lifecycle.Event{Name: "Sunday Game"},
		Subject: &lifecycle.User{Name: "Ana", Rank: 3.5},
	})

	require.Len(t, msg.Blocks.BlockSet, 3)
	header, ok := msg.Blocks.BlockSet[0].(*slackapi.HeaderBlock)
	require.True(t, ok)
	assert.Equal(t, "🎾 Approval requested", header.Text.Text)

	section, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Contains(t, section.Text.Text, `Ana asks to join "Sunday Game"`)

	ctxBlock, ok := msg.Blocks.BlockSet[2].(*slackapi.ContextBlock)
	require.True(t, ok)
	require.Len(t, ctxBlock.ContextElements.Elements, 1)
	assert.Equal(t, "Rank 3.50", ctxBlock.ContextElements.Elements[0].(*slackapi.TextBlockObject).Text)
}

func TestFormatEventSummary(t *testing.T) {
	lo, hi := 2.0, 4.0
	n := NewNotifierWithAPI(nil, "C123", true, metrics.NewMock())
	view := &catalog.EventView{
		Event: lifecycle.Event{
			Name:     "Spring Cup",
			Type:     lifecycle.EventTypeTournament,
			Status:   lifecycle.EventStatusCompleted,
			MaxUsers: 8,
			Price:    decimal.NewFromInt(1500),
			RankMin:  &lo,
			RankMax:  &hi,
		},
		Occupied: 8,
		Leaderboard: []lifecycle.LeaderboardEntry{
			{Place: 1, UserID: "u1"},
			{Place: 2, UserID: "u2"},
		},
	}

	msg := n.formatEventSummary(view)
	require.Len(t, msg.Blocks.BlockSet, 3)

	details := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock).Text.Text
	assert.Contains(t, details, "Status: COMPLETED")
	assert.Contains(t, details, "Time: not scheduled")
	assert.Contains(t, details, "Players: 8/8")
	assert.Contains(t, details, "Price: 1500.00")
	assert.Contains(t, details, "Rank: 2.0 to 4.0")

	podium := msg.Blocks.BlockSet[2].(*slackapi.SectionBlock).Text.Text
	assert.Equal(t, "Podium:\n🥇 u1\n🥈 u2", podium)
}

func TestFormatEventNotFoundResponse(t *testing.T) {
	n := NewNotifierWithAPI(nil, "C123", true, metrics.NewMock())

	resp, err := n.FormatEventNotFoundResponse("")
	require.NoError(t, err)
	msg := resp.(slackapi.Message)
	assert.Equal(t, "Usage: /event <event id>", msg.Blocks.BlockSet[0].(*slackapi.SectionBlock).Text.Text)
}
