package registry

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"deals-bot/affiliate"
	"deals-bot/models"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Registry is the immutable channel → page → network mapping, built once at
// startup from the merged viper configuration. It is safe for concurrent
// reads and is never modified afterwards.
type Registry struct {
	channels map[string]models.ChannelMapping
	ttls     map[string]time.Duration
	pages    []string
}

// Load decodes the "channels" block (merged in from config/channels.json)
// and validates every mapping. Keys that are not Discord snowflakes are
// skipped so unrelated top-level config blocks don't leak in.
func Load() (*Registry, error) {
	raw, ok := viper.Get("channels").(map[string]any)
	if !ok {
		return nil, fmt.Errorf("no channels block found in configuration")
	}

	channels := make(map[string]models.ChannelMapping)
	pageSet := make(map[string]bool)

	for key, value := range raw {
		// Channel keys are digit-only snowflake IDs; skip anything else.
		if _, err := strconv.ParseUint(key, 10, 64); err != nil {
			continue
		}

		var mapping models.ChannelMapping
		if err := mapstructure.Decode(value, &mapping); err != nil {
			return nil, fmt.Errorf("could not decode mapping for channel %s: %w", key, err)
		}
		mapping.ChannelID = key

		if err := validate(mapping); err != nil {
			return nil, fmt.Errorf("invalid mapping for channel %s: %w", key, err)
		}

		channels[key] = mapping
		pageSet[mapping.DestinationPage] = true
	}

	if len(channels) == 0 {
		return nil, fmt.Errorf("channels block contains no valid channel mappings")
	}

	pages := make([]string, 0, len(pageSet))
	for page := range pageSet {
		pages = append(pages, page)
	}
	sort.Strings(pages)

	return &Registry{
		channels: channels,
		ttls:     loadTTLs(pages),
		pages:    pages,
	}, nil
}

// validate enforces the load-time invariants: exactly one destination page,
// at least one network rule, and structurally sound rules. Wrapper templates
// are checked here so a bad template is a startup error, not a runtime one.
func validate(m models.ChannelMapping) error {
	if m.DestinationPage == "" {
		return fmt.Errorf("missing destination page")
	}
	if len(m.Networks) == 0 {
		return fmt.Errorf("no affiliate network rules configured")
	}
	for i, rule := range m.Networks {
		if rule.NetworkID == "" {
			return fmt.Errorf("network rule %d has no network_id", i)
		}
		switch rule.TagType {
		case affiliate.TagTypeParameter:
			if rule.ParamName == "" || rule.ParamValue == "" {
				return fmt.Errorf("parameter rule %s needs param_name and param_value", rule.NetworkID)
			}
		case affiliate.TagTypeWrapper:
			if err := affiliate.ValidateTemplate(rule.Template); err != nil {
				return fmt.Errorf("wrapper rule %s: %w", rule.NetworkID, err)
			}
		default:
			return fmt.Errorf("network rule %s has unknown tag_type %q", rule.NetworkID, rule.TagType)
		}
	}
	return nil
}

func loadTTLs(pages []string) map[string]time.Duration {
	defaultTTL := viper.GetInt("catalog.default_ttl_hours")
	ttls := make(map[string]time.Duration, len(pages))
	for _, page := range pages {
		hours := viper.GetInt(fmt.Sprintf("pages.%s.ttl_hours", page))
		if hours <= 0 {
			hours = defaultTTL
		}
		ttls[page] = time.Duration(hours) * time.Hour
	}
	return ttls
}

// Lookup returns the mapping for a channel. A false return means the channel
// is not configured; callers drop the message and log a routing miss.
func (r *Registry) Lookup(channelID string) (models.ChannelMapping, bool) {
	mapping, ok := r.channels[channelID]
	return mapping, ok
}

// Pages returns the distinct destination pages, sorted. The store uses this
// to ensure per-page tables and the sweep job iterates over it.
func (r *Registry) Pages() []string {
	return r.pages
}

// TTL returns the record lifetime for a destination page.
func (r *Registry) TTL(page string) time.Duration {
	if ttl, ok := r.ttls[page]; ok {
		return ttl
	}
	return time.Duration(viper.GetInt("catalog.default_ttl_hours")) * time.Hour
}
