package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"

	commondb "github.com/Falconext/pos-web-sub003/internal/common/db"
	"github.com/Falconext/pos-web-sub003/internal/common/logger"
	"github.com/Falconext/pos-web-sub003/internal/gateway/domain"
)

// Querier is the part of *pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

var errNoCredentials = errors.New("no credentials row")

const (
	createCredentialsTable = `
		CREATE TABLE IF NOT EXISTS gateway_credentials (
			terminal_id   TEXT PRIMARY KEY,
			access_token  TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	selectCredentials = `SELECT access_token, refresh_token FROM gateway_credentials WHERE terminal_id = $1`

	upsertCredentials = `
		INSERT INTO gateway_credentials (terminal_id, access_token, refresh_token, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (terminal_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    updated_at = EXCLUDED.updated_at`

	deleteCredentials = `DELETE FROM gateway_credentials WHERE terminal_id = $1`

	credentialsAbsent = `SELECT NOT EXISTS (SELECT 1 FROM gateway_credentials WHERE terminal_id = $1)`

	compareDeleteCredentials = `DELETE FROM gateway_credentials WHERE terminal_id = $1 AND refresh_token = $2`

	insertCredentialsIfAbsent = `
		INSERT INTO gateway_credentials (terminal_id, access_token, refresh_token, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (terminal_id) DO NOTHING`

	compareUpdateCredentials = `
		UPDATE gateway_credentials
		SET access_token = $3, refresh_token = $4, updated_at = now()
		WHERE terminal_id = $1 AND refresh_token = $2`
)

// PgStore keeps one row per terminal in gateway_credentials. Statements are
// retried on transient errors.
type PgStore struct {
	db         Querier
	terminalID string
	retry      commondb.RetryConfig
	log        *logger.Logger
}

func NewPgStore(db Querier, terminalID string, log *logger.Logger) *PgStore {
	return &PgStore{
		db:         db,
		terminalID: terminalID,
		retry:      commondb.DefaultRetryConfig,
		log:        log,
	}
}

func (s *PgStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, createCredentialsTable)
	return commondb.Wrap(err, nil, "create gateway_credentials")
}

func (s *PgStore) Get(ctx context.Context) (domain.CredentialPair, error) {
	var pair domain.CredentialPair
	err := commondb.Retry(ctx, s.log, s.retry, "select_credentials", func(ctx context.Context) error {
		err := s.db.QueryRow(ctx, selectCredentials, s.terminalID).Scan(&pair.AccessToken, &pair.RefreshToken)
		return commondb.Wrap(err, errNoCredentials, "select credentials")
	})
	switch {
	case errors.Is(err, errNoCredentials):
		return domain.CredentialPair{}, nil
	case err != nil:
		return domain.CredentialPair{}, err
	}
	return pair, nil
}

func (s *PgStore) Set(ctx context.Context, pair domain.CredentialPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	return s.exec(ctx, "upsert_credentials", upsertCredentials, nil, s.terminalID, pair.AccessToken, pair.RefreshToken)
}

func (s *PgStore) Clear(ctx context.Context) error {
	return s.exec(ctx, "delete_credentials", deleteCredentials, nil, s.terminalID)
}

// CompareAndSwap guards the write with the stored refresh token. Stored rows
// always carry one, so an empty refreshToken only matches a missing row.
func (s *PgStore) CompareAndSwap(ctx context.Context, refreshToken string, next domain.CredentialPair) (bool, error) {
	if !next.IsEmpty() {
		if err := next.Validate(); err != nil {
			return false, err
		}
	}

	var tag pgconn.CommandTag
	var err error
	switch {
	case next.IsEmpty() && refreshToken == "":
		var absent bool
		err = commondb.Retry(ctx, s.log, s.retry, "check_credentials_absent", func(ctx context.Context) error {
			return commondb.Wrap(s.db.QueryRow(ctx, credentialsAbsent, s.terminalID).Scan(&absent), nil, "check credentials")
		})
		return absent, err
	case next.IsEmpty():
		err = s.exec(ctx, "compare_delete_credentials", compareDeleteCredentials, &tag, s.terminalID, refreshToken)
	case refreshToken == "":
		err = s.exec(ctx, "insert_credentials", insertCredentialsIfAbsent, &tag, s.terminalID, next.AccessToken, next.RefreshToken)
	default:
		err = s.exec(ctx, "compare_update_credentials", compareUpdateCredentials, &tag,
			s.terminalID, refreshToken, next.AccessToken, next.RefreshToken)
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) exec(ctx context.Context, operation, sql string, tag *pgconn.CommandTag, args ...interface{}) error {
	return commondb.Retry(ctx, s.log, s.retry, operation, func(ctx context.Context) error {
		t, err := s.db.Exec(ctx, sql, args...)
		if err != nil {
			return commondb.Wrap(err, nil, operation)
		}
		if tag != nil {
			*tag = t
		}
		return nil
	})
}
