package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"tenant-auth-core/internal/model"
)

const actionTokenKeyPrefix = "action_token:"

// consumeScript deletes the hash only when its purpose matches ARGV[1].
var consumeScript = redis.NewScript(`
local purpose = redis.call('HGET', KEYS[1], 'purpose')
if not purpose or purpose ~= ARGV[1] then
	return false
end
local fields = redis.call('HMGET', KEYS[1], 'subject_id', 'expires_at', 'created_at')
redis.call('DEL', KEYS[1])
return fields
`)

// RedisActionTokenStore keeps action tokens as Redis hashes. It is used
// instead of ActionTokenRepository when REDIS_ADDR is configured.
type RedisActionTokenStore struct {
	client *redis.Client
}

func NewRedisActionTokenStore(client *redis.Client) *RedisActionTokenStore {
	return &RedisActionTokenStore{client: client}
}

func actionTokenKey(value string) string {
	return actionTokenKeyPrefix + value
}

func (s *RedisActionTokenStore) Exists(ctx context.Context, value string) (bool, error) {
	n, err := s.client.Exists(ctx, actionTokenKey(value)).Result()
	if err != nil {
		return false, fmt.Errorf("check action token exists: %w", err)
	}
	return n > 0, nil
}

func (s *RedisActionTokenStore) Save(ctx context.Context, t model.ActionToken) error {
	key := actionTokenKey(t.Value)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"purpose", string(t.Purpose),
			"subject_id", strconv.FormatInt(t.SubjectID, 10),
			"expires_at", t.ExpiresAt.UTC().Format(time.RFC3339Nano),
			"created_at", t.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.ExpireAt(ctx, key, t.ExpiresAt.Add(model.ActionTokenRetention))
		return nil
	})
	if err != nil {
		return fmt.Errorf("save action token: %w", err)
	}
	return nil
}

func (s *RedisActionTokenStore) Consume(ctx context.Context, purpose model.ActionPurpose, value string) (model.ActionToken, error) {
	fields, err := consumeScript.Run(ctx, s.client, []string{actionTokenKey(value)}, string(purpose)).StringSlice()
	if errors.Is(err, redis.Nil) {
		return model.ActionToken{}, model.ErrActionTokenNotFound
	}
	if err != nil {
		return model.ActionToken{}, fmt.Errorf("consume action token: %w", err)
	}
	if len(fields) != 3 {
		return model.ActionToken{}, fmt.Errorf("consume action token: unexpected reply length %d", len(fields))
	}

	subjectID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return model.ActionToken{}, fmt.Errorf("parse action token subject: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields[1])
	if err != nil {
		return model.ActionToken{}, fmt.Errorf("parse action token expiry: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields[2])
	if err != nil {
		return model.ActionToken{}, fmt.Errorf("parse action token creation: %w", err)
	}

	return model.ActionToken{
		Value:     value,
		Purpose:   purpose,
		SubjectID: subjectID,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}
