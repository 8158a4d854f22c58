// Package credentials reads and writes the record holding the bearer token
// and the patient profile, stored under a single fixed key.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/Pairs34/CerrahPasaRandevu/internal/domain/appointment"
	"github.com/Pairs34/CerrahPasaRandevu/internal/internaltypes"
	"github.com/Pairs34/CerrahPasaRandevu/internal/logger"
)

// Key is the fixed key the record lives under in every backend.
const Key = "credentials"

// Store is a backend holding the raw JSON record. Load returns
// internaltypes.ErrNotFound when nothing is stored.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, record []byte) error
}

type Accessor struct {
	store Store
	log   *zap.Logger
}

func NewAccessor(store Store, log *zap.Logger) *Accessor {
	return &Accessor{store: store, log: logger.OrNop(log).Named("credentials")}
}

// Get returns the stored credentials, or false after logging why they are
// absent or unusable.
func (a *Accessor) Get(ctx context.Context) (appointment.Credentials, bool) {
	c, err := a.Lookup(ctx)
	if err != nil {
		if errors.Is(err, internaltypes.ErrNotFound) {
			a.log.Error("credentials not found, check the credential store")
		} else {
			a.log.Error("credentials unusable", zap.Error(err))
		}
		return appointment.Credentials{}, false
	}
	return c, true
}

// Lookup is Get with the reason returned instead of logged.
func (a *Accessor) Lookup(ctx context.Context) (appointment.Credentials, error) {
	raw, err := a.store.Load(ctx)
	if err != nil {
		return appointment.Credentials{}, err
	}
	var c appointment.Credentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return appointment.Credentials{}, fmt.Errorf("%w: %v", internaltypes.ErrMalformed, err)
	}
	if err := c.Validate(); err != nil {
		return appointment.Credentials{}, err
	}
	return c, nil
}

// Put validates c and replaces the stored record.
func (a *Accessor) Put(ctx context.Context, c appointment.Credentials) error {
	if err := c.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return a.store.Save(ctx, b)
}
