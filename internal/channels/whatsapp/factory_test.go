package whatsapp

import (
	"context"
	"testing"

	"github.com/nextlevelbuilder/orchhub/internal/store"
)

type fakeConfigStore struct {
	byPhone map[string]*store.ChannelConfig
}

func (f *fakeConfigStore) FindByPrimaryKey(ctx context.Context, channelType, primaryKey string) (*store.ChannelConfig, error) {
	return nil, nil
}

func (f *fakeConfigStore) FindByNormalizedKey(ctx context.Context, channelType, normalizedKey string) (*store.ChannelConfig, error) {
	return nil, nil
}

func (f *fakeConfigStore) FindByPhoneNumber(ctx context.Context, channelType, phoneNumber string) (*store.ChannelConfig, error) {
	return f.byPhone[channelType+":"+phoneNumber], nil
}

func TestNewFromStore_ResolvesUltramsgCredentials(t *testing.T) {
	fs := &fakeConfigStore{byPhone: map[string]*store.ChannelConfig{
		"whatsapp_ultramsg:593987654321": {
			Active:     true,
			Addressing: map[string]string{"instanceId": "148415", "token": "tok"},
		},
	}}
	ch := NewFromStore(fs)

	creds, err := ch.resolve(context.Background(), "593987654321@c.us")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if creds.Provider != ProviderUltramsg || creds.InstanceID != "148415" || creds.Token != "tok" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
}

func TestNewFromStore_NoMatchErrors(t *testing.T) {
	fs := &fakeConfigStore{byPhone: map[string]*store.ChannelConfig{}}
	ch := NewFromStore(fs)

	if _, err := ch.resolve(context.Background(), "593987654321@c.us"); err == nil {
		t.Fatal("expected error when no channel config matches")
	}
}

func TestNewFromStore_SkipsInactiveConfig(t *testing.T) {
	fs := &fakeConfigStore{byPhone: map[string]*store.ChannelConfig{
		"whatsapp_360dialog:593987654321": {Active: false},
	}}
	ch := NewFromStore(fs)

	if _, err := ch.resolve(context.Background(), "593987654321@c.us"); err == nil {
		t.Fatal("expected error when the only match is inactive")
	}
}
