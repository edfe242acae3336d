package models

import "time"

// IngestedMessage represents one promotional post received from a channel.
// It is immutable after receipt and retained in the messages audit table.
type IngestedMessage struct {
	ChannelID  string    `json:"channel_id"`
	MessageID  string    `json:"message_id"`
	RawText    string    `json:"raw_text"`
	ReceivedAt time.Time `json:"received_at"`
}

// ParsedMessage is the output of the message parser: the candidate URLs in the
// order they appeared, plus best-effort hints pulled from the surrounding text.
// When the text carries two price tokens ("Sale price Rs. 87 Regular price
// Rs. 399"), the first is always the current price and the second the
// original one, never the reverse.
type ParsedMessage struct {
	URLs              []string `json:"urls"`
	PriceHint         string   `json:"price_hint"`          // first price-like token, e.g. "Rs. 87"
	OriginalPriceHint string   `json:"original_price_hint"` // second price-like token, if any
	TitleHint         string   `json:"title_hint"`          // first substantive line of the message
}

// Message audit outcomes recorded for every inbound message.
const (
	OutcomeProcessed = "processed" // at least one candidate reached a terminal state
	OutcomeIgnored   = "ignored"   // no URLs found in the message
	OutcomeUnmapped  = "unmapped"  // channel not present in the registry
)
