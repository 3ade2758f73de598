package ingress

import (
	"context"
	"regexp"
	"strings"

	"github.com/nextlevelbuilder/orchhub/internal/store"
)

var nonDigit = regexp.MustCompile(`[^0-9]`)

// IdentifyChannel maps a webhook-native identifier to a ChannelConfig via
// the three-step fallback of §4.1: primary key, normalized digits-only
// comparison, then phone-number fallback. A nil result (no error) means
// processing continues but routing falls back to channel_type alone.
func IdentifyChannel(ctx context.Context, channels store.ChannelConfigStore, provider Provider, primaryKey, channelUserID string) (*store.ChannelConfig, error) {
	channelType := string(provider)

	if primaryKey != "" {
		cfg, err := channels.FindByPrimaryKey(ctx, channelType, primaryKey)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			return cfg, nil
		}

		normalized := normalizeKey(primaryKey)
		cfg, err = channels.FindByNormalizedKey(ctx, channelType, normalized)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			return cfg, nil
		}
	}

	if channelUserID != "" {
		cfg, err := channels.FindByPhoneNumber(ctx, channelType, phoneDigits(channelUserID))
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			return cfg, nil
		}
	}

	return nil, nil
}

// normalizeKey strips a literal "instance" prefix and any non-digit
// characters, per §4.1 step 2.
func normalizeKey(key string) string {
	key = strings.TrimPrefix(key, "instance")
	return nonDigit.ReplaceAllString(key, "")
}

// phoneDigits extracts the digits-only phone number from a channel user id
// like "593987654321@c.us".
func phoneDigits(channelUserID string) string {
	if at := strings.IndexByte(channelUserID, '@'); at >= 0 {
		channelUserID = channelUserID[:at]
	}
	return nonDigit.ReplaceAllString(channelUserID, "")
}
