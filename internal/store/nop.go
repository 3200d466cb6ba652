package store

import (
	"context"

	"github.com/amishk599/jobpulse/internal/model"
)

// NopStore is a no-op store used in dry-run mode. It never remembers a
// signal, so every poll is a first run and nothing is written.
type NopStore struct{}

var _ Store = (*NopStore)(nil)

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Get(context.Context, string) (model.Signal, bool, error) {
	return model.Signal{}, false, nil
}

func (s *NopStore) Put(context.Context, string, model.Signal) error { return nil }

func (s *NopStore) List(context.Context) ([]model.StateRecord, error) { return nil, nil }

func (s *NopStore) Delete(context.Context, string) error { return nil }

func (s *NopStore) Close() error { return nil }
