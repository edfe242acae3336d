package handlers

import (
	"fmt"
	"strings"

	"deals-bot/bot"
	"deals-bot/database"
	"deals-bot/utils"

	"github.com/bwmarrin/discordgo"
)

// CommandDispatcher is the central handler for all application command interactions.
// It performs permission checks and then dispatches the interaction to the appropriate handler.
func CommandDispatcher(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	auth, err := utils.NewAuth()
	if err != nil {
		utils.Log.WithError(err).Error("Failed to create auth instance")
		return
	}

	commandPermissions := map[string]utils.Level{
		"deals":           utils.LevelGuest,
		"pipeline_status": utils.LevelAdmin,
		"sweep":           utils.LevelAdmin,
		"ping":            utils.LevelGuest,
	}

	commandName := i.ApplicationCommandData().Name
	requiredLevel, ok := commandPermissions[commandName]

	if ok {
		if !auth.Allowed(i, requiredLevel) {
			s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "🚫 你没有权限执行此命令",
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			})
			return
		}
	}

	switch commandName {
	case "deals":
		HandleDeals(b, s, i)
	case "pipeline_status":
		HandleStatus(b, s, i)
	case "sweep":
		HandleSweep(b, s, i)
	case "ping":
		HandlePing(s, i)
	default:
		s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "🚫内部错误：Unknown command.",
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
	}
}

const defaultDealsLimit = 10

// HandleDeals lists the active product records for a destination page.
func HandleDeals(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	var page string
	limit := defaultDealsLimit
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "page":
			page = opt.StringValue()
		case "limit":
			if v := int(opt.IntValue()); v > 0 {
				limit = v
			}
		}
	}

	records, err := database.ListActive(b.DB, page)
	if err != nil {
		utils.Log.WithError(err).WithField("page", page).Error("Failed to list active deals")
		respondEphemeral(s, i, "Failed to query deals for this page.")
		return
	}

	if len(records) == 0 {
		respondEphemeral(s, i, fmt.Sprintf("No active deals on page `%s`.", page))
		return
	}
	if len(records) > limit {
		records = records[:limit]
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(records))
	for _, rec := range records {
		value := fmt.Sprintf("₹%.0f", rec.CurrentPrice)
		if rec.OriginalPrice != nil && rec.DiscountPct != nil {
			value = fmt.Sprintf("₹%.0f ~~₹%.0f~~ (%d%% off)", rec.CurrentPrice, *rec.OriginalPrice, *rec.DiscountPct)
		}
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  rec.Name,
			Value: fmt.Sprintf("%s\n[link](%s)", value, rec.AffiliateURL),
		})
	}

	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{
				Title:  fmt.Sprintf("Active deals — %s", page),
				Color:  utils.ColorInfo,
				Fields: fields,
			}},
		},
	})
}

// HandleStatus reports the pipeline counters and queue depth.
func HandleStatus(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	st := b.Pipeline.Stats()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Queue depth: %d\n", st.QueueDepth)
	fmt.Fprintf(&sb, "Received: %d\n", st.Received)
	fmt.Fprintf(&sb, "Persisted: %d\n", st.Persisted)
	fmt.Fprintf(&sb, "Rejected: %d\n", st.Rejected)
	fmt.Fprintf(&sb, "Ignored (no URLs): %d\n", st.Ignored)
	fmt.Fprintf(&sb, "Routing misses: %d\n", st.Unmapped)
	fmt.Fprintf(&sb, "Dropped (queue full): %d\n", st.Dropped)
	respondEphemeral(s, i, sb.String())
}

// HandleSweep triggers the expiry sweep on demand.
func HandleSweep(b *bot.Bot, s *discordgo.Session, i *discordgo.InteractionCreate) {
	swept, err := database.SweepExpired(b.DB, b.Registry.Pages())
	if err != nil {
		utils.Log.WithError(err).Error("Manual expiry sweep failed")
		respondEphemeral(s, i, "Sweep failed, see logs.")
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("Sweep complete: %d records expired.", swept))
}

// HandlePing responds to the ping command.
func HandlePing(s *discordgo.Session, i *discordgo.InteractionCreate) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: "Pong!",
		},
	})
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
