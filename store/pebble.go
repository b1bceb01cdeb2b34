package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/meme-bots/go-v2-indexer/types"
)

type Pebble struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
}

var _ KV = (*Pebble)(nil)

func NewPebble(dir string, sync bool) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", dir, err)
	}

	writeOpts := pebble.NoSync
	if sync {
		writeOpts = pebble.Sync
	}
	return &Pebble{db: db, writeOpts: writeOpts}, nil
}

func (p *Pebble) Get(_ context.Context, key string) ([]byte, error) {
	value, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return bytes.Clone(value), nil
}

func (p *Pebble) Set(_ context.Context, key string, value []byte) error {
	return p.db.Set([]byte(key), value, p.writeOpts)
}

func (p *Pebble) Close() error {
	return p.db.Close()
}
