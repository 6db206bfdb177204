package preset

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/randalmurphal/chainreaction/pkg/chainreaction/presetstore"
)

// Save serializes p and writes it to store under key.
func Save(ctx context.Context, store presetstore.Store, key string, p Preset) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal preset %s: %w", key, err)
	}
	return store.Save(ctx, key, data)
}

// Load reads the preset stored under key.
func Load(ctx context.Context, store presetstore.Store, key string) (Preset, error) {
	data, err := store.Load(ctx, key)
	if err != nil {
		return Preset{}, err
	}
	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("unmarshal preset %s: %w", key, err)
	}
	return p, nil
}

// LoadStore registers every preset in store, in store order.
// Returns the number of presets registered.
func LoadStore(ctx context.Context, store presetstore.Store, r *Registry) (int, error) {
	infos, err := store.List(ctx)
	if err != nil {
		return 0, err
	}
	for i, info := range infos {
		p, err := Load(ctx, store, info.Key)
		if err != nil {
			return i, err
		}
		if err := r.Register(info.Key, p); err != nil {
			return i, err
		}
	}
	return len(infos), nil
}
