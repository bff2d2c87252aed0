package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

const stateKey = "singer-state"

// KVStore keeps the state document in a JetStream key-value bucket, so
// scheduled runs on different hosts share bookmarks.
type KVStore struct {
	kv jetstream.KeyValue
}

func NewKVStore(ctx context.Context, bucket string, js jetstream.JetStream) (*KVStore, error) {
	//nolint: exhaustruct // optional config
	cfg := jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Replication state of the shopify shops tap",
		History:     10,
		Compression: true,
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create state store: %w", err)
	}

	return &KVStore{kv: kv}, nil
}

func (k *KVStore) Load(ctx context.Context) (*SyncState, error) {
	entry, err := k.kv.Get(ctx, stateKey)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}

	return Parse(entry.Value())
}

func (k *KVStore) Save(ctx context.Context, s *SyncState) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}

	if _, err := k.kv.Put(ctx, stateKey, data); err != nil {
		return fmt.Errorf("put state: %w", err)
	}

	return nil
}
