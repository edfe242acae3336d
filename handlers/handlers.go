package handlers

import (
	"deals-bot/bot"
	"deals-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// Register all handlers to the bot.
func Register(b *bot.Bot) {
	// Register event handlers
	b.Session.AddHandler(MessageCreate(b))
	b.Session.AddHandler(InteractionCreate(b))

	// Add a ready handler to log when the bot is connected.
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		utils.Log.Infof("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)
	})
}
