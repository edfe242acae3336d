package utils

import (
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	ColorInfo  = 0x00ff00 // Green
	ColorWarn  = 0xffff00 // Yellow
	ColorError = 0xff0000 // Red
)

// Log is the process-wide structured logger. Pipeline entries carry
// channel_id / message_id / stage / reason fields so that any rejected
// candidate can be diagnosed and replayed from the logs alone.
var Log = logrus.New()

// InitLogger configures the log level and format from config.
func InitLogger() {
	level, err := logrus.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
}

// AttachDiscordHook mirrors warning and error entries to the admin channel
// as colored embeds. If bot.adminChannelId is not configured the hook is a
// no-op and logging stays on stdout only.
func AttachDiscordHook(s *discordgo.Session) {
	channelID := viper.GetString("bot.adminChannelId")
	if channelID == "" {
		Log.Warn("bot.adminChannelId is not set; channel log mirror disabled")
		return
	}
	Log.AddHook(&discordHook{session: s, channelID: channelID})
}

// discordHook posts log entries to the admin channel.
type discordHook struct {
	session   *discordgo.Session
	channelID string
}

func (h *discordHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.ErrorLevel, logrus.WarnLevel}
}

func (h *discordHook) Fire(entry *logrus.Entry) error {
	var color int
	switch entry.Level {
	case logrus.WarnLevel:
		color = ColorWarn
	case logrus.ErrorLevel:
		color = ColorError
	default:
		color = ColorInfo
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(entry.Data))
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   k,
			Value:  fmt.Sprintf("%v", entry.Data[k]),
			Inline: true,
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:     entry.Message,
		Color:     color,
		Timestamp: entry.Time.Format(time.RFC3339),
		Fields:    fields,
	}

	// A failed mirror must never take down the logger itself.
	if _, err := h.session.ChannelMessageSendEmbed(h.channelID, embed); err != nil {
		fmt.Printf("Failed to mirror log entry to admin channel: %v\n", err)
	}
	return nil
}
