package command

import "github.com/bwmarrin/discordgo"

// DealsCommand defines the structure for the /deals command.
type DealsCommand struct{}

// Definition returns the application command definition.
func (c *DealsCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "deals",
		Description: "List the active deals for a storefront page",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:         "page",
				Description:  "The destination page to list",
				Type:         discordgo.ApplicationCommandOptionString,
				Required:     true,
				Autocomplete: true,
			},
			{
				Name:        "limit",
				Description: "Maximum number of deals to show (default 10)",
				Type:        discordgo.ApplicationCommandOptionInteger,
				Required:    false,
			},
		},
	}
}

// StatusCommand defines the structure for the /pipeline_status command.
type StatusCommand struct{}

// Definition returns the application command definition.
func (c *StatusCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "pipeline_status",
		Description: "Show ingestion pipeline counters and queue depth",
	}
}

// SweepCommand defines the structure for the /sweep command.
type SweepCommand struct{}

// Definition returns the application command definition.
func (c *SweepCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "sweep",
		Description: "Manually trigger the expiry sweep",
	}
}

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Responds with Pong!",
	}
}
