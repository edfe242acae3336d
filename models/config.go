package models

// ChannelsConfig represents the structure of the config/channels.json file.
// It's a map where keys are Discord channel IDs.
type ChannelsConfig map[string]ChannelMapping

// ChannelMapping binds one source channel to its destination page and the
// affiliate networks that apply to links posted there, in priority order.
type ChannelMapping struct {
	ChannelID       string        `json:"channel_id" mapstructure:"channel_id"`
	Name            string        `json:"name" mapstructure:"name"`
	DestinationPage string        `json:"page" mapstructure:"page"`
	Networks        []NetworkRule `json:"networks" mapstructure:"networks"`
}

// NetworkRule describes how one affiliate network embeds its tag into a URL.
type NetworkRule struct {
	NetworkID string `json:"network_id" mapstructure:"network_id"`
	// TagType is either "parameter" (inject a query parameter) or
	// "wrapper" (substitute the URL into a template string).
	TagType     string `json:"tag_type" mapstructure:"tag_type"`
	ParamName   string `json:"param_name" mapstructure:"param_name"`
	ParamValue  string `json:"param_value" mapstructure:"param_value"`
	Template    string `json:"template" mapstructure:"template"`
	HostPattern string `json:"host_pattern" mapstructure:"host_pattern"` // optional suffix match on the canonical host
}

// PageConfig holds per-page tunables from the pages block of config.yaml.
type PageConfig struct {
	TTLHours int `json:"ttl_hours" mapstructure:"ttl_hours"`
}

// CommandsConfig represents the commands configuration structure
type CommandsConfig struct {
	Auth AuthConfig `json:"auth" mapstructure:"auth"`
}

// AuthConfig represents the authorization configuration
type AuthConfig struct {
	Developers  []string `json:"developers" mapstructure:"developers"`
	AdminsRoles []string `json:"admins_roles" mapstructure:"admins_roles"`
	Guest       []string `json:"guest" mapstructure:"guest"`
}
