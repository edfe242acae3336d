package handlers

import (
	"strings"

	"deals-bot/bot"

	"github.com/bwmarrin/discordgo"
)

// HandleAutocomplete completes the page option of /deals from the registry.
func HandleAutocomplete(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != "deals" {
		return
	}

	var typed string
	for _, opt := range data.Options {
		if opt.Name == "page" && opt.Focused {
			typed = opt.StringValue()
		}
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, page := range b.Registry.Pages() {
		if typed != "" && !strings.Contains(page, strings.ToLower(typed)) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  page,
			Value: page,
		})
	}

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
}
