package credentials

import (
	"context"
	"fmt"

	"github.com/Pairs34/CerrahPasaRandevu/internal/crypto"
	"github.com/Pairs34/CerrahPasaRandevu/internal/db"
	"github.com/Pairs34/CerrahPasaRandevu/internal/internaltypes"
)

// PostgresStore keeps the record encrypted in credential_records.
type PostgresStore struct {
	db   *db.DB
	aead *crypto.AEAD
}

func NewPostgresStore(d *db.DB, aead *crypto.AEAD) *PostgresStore {
	return &PostgresStore{db: d, aead: aead}
}

func (s *PostgresStore) Load(ctx context.Context) ([]byte, error) {
	var sealed string
	err := s.db.QueryRow(ctx, `SELECT value FROM credential_records WHERE key=$1`, Key).Scan(&sealed)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, internaltypes.ErrNotFound
		}
		return nil, db.WrapNotFound(err)
	}
	b, err := s.aead.Open(sealed, []byte(Key))
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt: %v", internaltypes.ErrMalformed, err)
	}
	return b, nil
}

func (s *PostgresStore) Save(ctx context.Context, record []byte) error {
	sealed, err := s.aead.Seal(record, []byte(Key))
	if err != nil {
		return err
	}
	return s.db.Exec(ctx, `
		INSERT INTO credential_records (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()
	`, Key, sealed)
}
