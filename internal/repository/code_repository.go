package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oneid-dev/oneid-api/internal/models"
	appErrors "github.com/oneid-dev/oneid-api/pkg/errors"
)

const loginCodeKeyPrefix = "logincode:"

// CodeRepository stores single-use login codes in Redis with an explicit TTL.
// A code is consumed atomically with GETDEL so it can be exchanged for a
// token pair at most once.
type CodeRepository struct {
	client *redis.Client
}

// NewCodeRepository constructs a code repository.
func NewCodeRepository(client *redis.Client) *CodeRepository {
	return &CodeRepository{client: client}
}

// SaveLoginCode stores the grant behind a login code for the given TTL.
func (r *CodeRepository) SaveLoginCode(ctx context.Context, code string, grant *models.LoginCodeGrant, ttl time.Duration) error {
	payload, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("marshal login code grant: %w", err)
	}
	if err := r.client.Set(ctx, loginCodeKeyPrefix+code, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set login code: %w", err)
	}
	return nil
}

// ConsumeLoginCode retrieves and deletes a login code in one round trip.
// A missing or expired code returns redis.Nil to the caller.
func (r *CodeRepository) ConsumeLoginCode(ctx context.Context, code string) (*models.LoginCodeGrant, error) {
	raw, err := r.client.GetDel(ctx, loginCodeKeyPrefix+code).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, err
		}
		return nil, fmt.Errorf("redis getdel login code: %w", err)
	}

	var grant models.LoginCodeGrant
	if err := json.Unmarshal(raw, &grant); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Message)
	}
	return &grant, nil
}
