// Package keyvalue persists the encrypted rows behind the secure credential
// store. Values arrive already sealed; the repository never sees plaintext.
package keyvalue

import "context"

// Record is one sealed field.
type Record struct {
	Key   string
	Nonce []byte
	Value []byte
}

type Repository interface {
	// Get returns nil, nil when the key is absent.
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, rec Record) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) ([]Record, error)
	Clear(ctx context.Context) error
}
