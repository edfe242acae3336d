package handlers

import (
	"time"

	"deals-bot/bot"
	"deals-bot/models"

	"github.com/bwmarrin/discordgo"
)

// MessageCreate wraps every new channel message as an IngestedMessage and
// hands it to the pipeline queue. The callback never blocks: backpressure
// is the queue bound, and a full queue drops (and logs) the message.
func MessageCreate(b *bot.Bot) func(s *discordgo.Session, m *discordgo.MessageCreate) {
	return func(s *discordgo.Session, m *discordgo.MessageCreate) {
		// Ignore all messages created by bots, including this one.
		if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
			return
		}

		receivedAt := time.Now()
		if ts := m.Timestamp; !ts.IsZero() {
			receivedAt = ts
		}

		b.Pipeline.Enqueue(models.IngestedMessage{
			ChannelID:  m.ChannelID,
			MessageID:  m.ID,
			RawText:    m.Content,
			ReceivedAt: receivedAt,
		})
	}
}
