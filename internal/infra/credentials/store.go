package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"mediaforge/internal/infra"
	"mediaforge/internal/sqlinline"
)

// ProviderGeneration identifies the generation provider token slot.
const ProviderGeneration = "generation"

// Store persists provider API tokens in the database so deployments can
// rotate credentials without restarting workers.
type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

// GenerationAPIKey returns the stored generation provider token, or empty
// when none has been configured.
func (s *Store) GenerationAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGeneration)
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// SetGenerationAPIKey stores the generation provider token.
func (s *Store) SetGenerationAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("generation api key is required")
	}
	return s.upsert(ctx, ProviderGeneration, key, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
