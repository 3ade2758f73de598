package pg

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nextlevelbuilder/orchhub/internal/errkind"
	"github.com/nextlevelbuilder/orchhub/internal/store"
)

// ChannelConfigStore is the pgx-backed store.ChannelConfigStore implementing
// the §4.1 three-step channel-identification fallback.
type ChannelConfigStore struct {
	pool *pgxpool.Pool
}

// NewChannelConfigStore creates a ChannelConfigStore bound to pool.
func NewChannelConfigStore(pool *pgxpool.Pool) *ChannelConfigStore {
	return &ChannelConfigStore{pool: pool}
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

func (s *ChannelConfigStore) Get(ctx context.Context, id uuid.UUID) (*store.ChannelConfig, error) {
	return s.scanOne(ctx, `SELECT id, channel_type, addressing, active FROM channel_configs WHERE id = $1`, id)
}

// FindByPrimaryKey matches a provider-native primary key stored verbatim in
// addressing (instanceId, accountSid, phoneNumberId).
func (s *ChannelConfigStore) FindByPrimaryKey(ctx context.Context, channelType, primaryKey string) (*store.ChannelConfig, error) {
	return s.scanOne(ctx, `
		SELECT id, channel_type, addressing, active FROM channel_configs
		WHERE channel_type = $1 AND (
			addressing->>'instanceId' = $2 OR
			addressing->>'accountSid' = $2 OR
			addressing->>'phoneNumberId' = $2
		) LIMIT 1`, channelType, primaryKey)
}

// FindByNormalizedKey strips a literal "instance" prefix and compares
// digits-only, per §4.1 step 2.
func (s *ChannelConfigStore) FindByNormalizedKey(ctx context.Context, channelType, normalizedKey string) (*store.ChannelConfig, error) {
	normalized := strings.TrimPrefix(normalizedKey, "instance")
	normalized = nonDigits.ReplaceAllString(normalized, "")
	if normalized == "" {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT id, channel_type, addressing, active FROM channel_configs WHERE channel_type = $1`, channelType)
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "store.channels.find_by_normalized_key", err)
	}
	defer rows.Close()
	for rows.Next() {
		cc, err := scanChannelRow(rows)
		if err != nil {
			return nil, err
		}
		for _, v := range cc.Addressing {
			candidate := nonDigits.ReplaceAllString(strings.TrimPrefix(v, "instance"), "")
			if candidate != "" && candidate == normalized {
				return cc, nil
			}
		}
	}
	return nil, rows.Err()
}

// FindByPhoneNumber is the final fallback of §4.1 step 3.
func (s *ChannelConfigStore) FindByPhoneNumber(ctx context.Context, channelType, phoneNumber string) (*store.ChannelConfig, error) {
	return s.scanOne(ctx, `
		SELECT id, channel_type, addressing, active FROM channel_configs
		WHERE channel_type = $1 AND addressing->>'phoneNumber' = $2 LIMIT 1`, channelType, phoneNumber)
}

func (s *ChannelConfigStore) scanOne(ctx context.Context, query string, args ...any) (*store.ChannelConfig, error) {
	var addrJSON []byte
	cc := &store.ChannelConfig{}
	err := s.pool.QueryRow(ctx, query, args...).Scan(&cc.ID, &cc.ChannelType, &addrJSON, &cc.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errkind.New(errkind.KindUnavailable, "store.channels.find", err)
	}
	_ = json.Unmarshal(addrJSON, &cc.Addressing)
	return cc, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannelRow(rows rowScanner) (*store.ChannelConfig, error) {
	var addrJSON []byte
	cc := &store.ChannelConfig{}
	if err := rows.Scan(&cc.ID, &cc.ChannelType, &addrJSON, &cc.Active); err != nil {
		return nil, errkind.New(errkind.KindInternal, "store.channels.scan", err)
	}
	_ = json.Unmarshal(addrJSON, &cc.Addressing)
	return cc, nil
}
