package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/secretoheladeria/heladeria-backend/pkg/db/models"
)

type fakeKV struct {
	values  map[string]string
	ttls    map[string]time.Duration
	touched int
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) GetTouch(_ context.Context, key string, ttl time.Duration) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", redislib.Nil
	}
	f.ttls[key] = ttl
	f.touched++
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
		delete(f.ttls, k)
	}
	return nil
}

func (f *fakeKV) CartKey(scope string) string {
	return "hd:cart:" + scope
}

type fakeProducts struct {
	items map[uuid.UUID]models.Product
}

func (f *fakeProducts) add(p models.Product) models.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.items[p.ID] = p
	return p
}

func (f *fakeProducts) FindProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (f *fakeProducts) FindProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := map[uuid.UUID]models.Product{}
	for _, id := range ids {
		if p, ok := f.items[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
