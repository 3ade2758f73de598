package whatsapp

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// whatsappProviders is every channel_type value FindByPhoneNumber must be
// tried against, since sendqueue.Adapter.Send only carries a bare
// channelUserID — the provider isn't known until the matching
// ChannelConfig is found.
var whatsappProviders = []Provider{Provider360Dialog, ProviderUltramsg, ProviderTwilio}

// NewFromStore builds a Channel whose configOverride resolver looks up the
// ChannelConfig matching the recipient's phone number across all three
// WhatsApp provider types (§4.8 "per-turn configOverride selects
// credentials for a specific instance").
func NewFromStore(configs store.ChannelConfigStore) *Channel {
	return New(func(ctx context.Context, channelUserID string) (Credentials, error) {
		phone := NormalizeUserID(channelUserID)

		for _, provider := range whatsappProviders {
			cfg, err := configs.FindByPhoneNumber(ctx, string(provider), phone)
			if err != nil {
				return Credentials{}, fmt.Errorf("lookup channel config: %w", err)
			}
			if cfg == nil || !cfg.Active {
				continue
			}
			return credentialsFromAddressing(provider, cfg.Addressing), nil
		}
		return Credentials{}, fmt.Errorf("no active whatsapp channel config for %q", channelUserID)
	})
}

// credentialsFromAddressing maps a ChannelConfig's opaque addressing map
// onto the fields each provider's send call needs.
func credentialsFromAddressing(provider Provider, addressing map[string]string) Credentials {
	creds := Credentials{Provider: provider}
	switch provider {
	case Provider360Dialog:
		creds.APIKey = addressing["apiKey"]
		creds.PhoneNumberID = addressing["phoneNumberId"]
	case ProviderUltramsg:
		creds.InstanceID = addressing["instanceId"]
		creds.Token = addressing["token"]
	case ProviderTwilio:
		creds.AccountSID = addressing["accountSid"]
		creds.AuthToken = addressing["authToken"]
		creds.FromNumber = addressing["fromNumber"]
	}
	return creds
}
