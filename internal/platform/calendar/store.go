package calendar

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"

	"github.com/medtrack/medtrack/internal/platform/db"
)

// CredentialStore persists OAuth tokens per user and provider, so a
// calendar connection survives restarts and works across instances.
type CredentialStore interface {
	Save(ctx context.Context, userID uuid.UUID, provider string, tok *oauth2.Token) error
	Get(ctx context.Context, userID uuid.UUID, provider string) (*oauth2.Token, error)
}

type storePG struct{ pool *pgxpool.Pool }

func NewStorePG(pool *pgxpool.Pool) CredentialStore {
	return &storePG{pool: pool}
}

func (s *storePG) conn(ctx context.Context) interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
} {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

func (s *storePG) Save(ctx context.Context, userID uuid.UUID, provider string, tok *oauth2.Token) error {
	var id uuid.UUID
	return s.conn(ctx).QueryRow(ctx, `
		INSERT INTO user_credentials (id, user_id, provider, access_token, refresh_token, token_type, expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, provider) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), user_credentials.refresh_token),
		    token_type = EXCLUDED.token_type,
		    expiry = EXCLUDED.expiry,
		    updated_at = NOW()
		RETURNING id`,
		uuid.New(), userID, provider,
		tok.AccessToken, tok.RefreshToken, tok.TokenType, tok.Expiry).Scan(&id)
}

func (s *storePG) Get(ctx context.Context, userID uuid.UUID, provider string) (*oauth2.Token, error) {
	var tok oauth2.Token
	err := s.conn(ctx).QueryRow(ctx, `
		SELECT access_token, refresh_token, token_type, expiry
		FROM user_credentials
		WHERE user_id = $1 AND provider = $2`,
		userID, provider).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &tok.Expiry)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}
