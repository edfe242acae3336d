package utils

import (
	"deals-bot/models"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
)

// Level is the permission tier a command requires.
type Level string

const (
	LevelGuest     Level = "guest"
	LevelAdmin     Level = "admin"
	LevelDeveloper Level = "developer"
)

// Auth answers permission checks against the commands.auth config block.
type Auth struct {
	config models.CommandsConfig
}

func NewAuth() (*Auth, error) {
	var commandsConfig models.CommandsConfig
	if err := viper.UnmarshalKey("commands", &commandsConfig); err != nil {
		return nil, err
	}
	return &Auth{config: commandsConfig}, nil
}

func (a *Auth) isDeveloper(userID string) bool {
	for _, devID := range a.config.Auth.Developers {
		if userID == devID {
			return true
		}
	}
	return false
}

func (a *Auth) isAdmin(member *discordgo.Member) bool {
	for _, adminRoleID := range a.config.Auth.AdminsRoles {
		for _, userRoleID := range member.Roles {
			if userRoleID == adminRoleID {
				return true
			}
		}
	}
	return false
}

// Allowed reports whether the interaction's member clears the required level.
// Developers clear every tier.
func (a *Auth) Allowed(i *discordgo.InteractionCreate, required Level) bool {
	if i.Member == nil || i.Member.User == nil {
		return false
	}
	switch required {
	case LevelGuest:
		return true
	case LevelAdmin:
		return a.isDeveloper(i.Member.User.ID) || a.isAdmin(i.Member)
	case LevelDeveloper:
		return a.isDeveloper(i.Member.User.ID)
	default:
		return false
	}
}
