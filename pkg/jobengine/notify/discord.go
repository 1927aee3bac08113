package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// DiscordSink posts a job_failure embed to a Discord channel via a bot
// token. It only opens a session to make the one API call and closes
// it again — no event handlers, no reconnect loop.
type DiscordSink struct {
	session   *discordgo.Session
	channelID string
	logger    *slog.Logger
}

// NewDiscordSink opens a Discord session for REST calls only (no
// gateway connection is established; Open is never called).
func NewDiscordSink(token, channelID string, logger *slog.Logger) (*DiscordSink, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DiscordSink{
		session:   session,
		channelID: channelID,
		logger:    logger.With("component", "notify.discord"),
	}, nil
}

func (d *DiscordSink) Emit(_ context.Context, n JobFailure) error {
	embed := &discordgo.MessageEmbed{
		Title:       "Job failed",
		Description: n.Error,
		Color:       0xCC3333,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Job", Value: n.JobName, Inline: true},
			{Name: "Owner", Value: n.Owner, Inline: true},
			{Name: "Attempts", Value: fmt.Sprintf("%d", n.Attempts), Inline: true},
		},
		Timestamp: n.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
	}
	_, err := d.session.ChannelMessageSendComplex(d.channelID, &discordgo.MessageSend{Embed: embed})
	if err != nil {
		return fmt.Errorf("notify: discord send: %w", err)
	}
	return nil
}
