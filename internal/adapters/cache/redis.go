// Package cache replica en Redis los snapshots publicados: otros procesos
// leen el último estado por deporte sin pasar por la API HTTP.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alejandrodnm/oddsignal/internal/domain"
)

// DefaultTTL aguanta varios ciclos perdidos antes de que expire la clave.
const DefaultTTL = 5 * time.Minute

const pingTimeout = 5 * time.Second

// RedisPublisher implementa ports.SnapshotPublisher.
type RedisPublisher struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPublisher parsea la URL, conecta y hace ping.
func NewRedisPublisher(redisURL string, ttl time.Duration) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache.NewRedisPublisher: parse url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("cache.NewRedisPublisher: ping: %w", err)
	}

	return NewRedisPublisherClient(client, ttl), nil
}

// NewRedisPublisherClient envuelve un cliente ya creado.
func NewRedisPublisherClient(client *redis.Client, ttl time.Duration) *RedisPublisher {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisPublisher{client: client, ttl: ttl}
}

// Publish guarda el snapshot en JSON bajo snapshot:{sport} y el número de
// oportunidades bajo snapshot:{sport}:count.
func (p *RedisPublisher) Publish(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("cache.Publish: marshal %s: %w", snap.Sport, err)
	}

	key := SnapshotKey(snap.Sport)
	pipe := p.client.TxPipeline()
	pipe.Set(ctx, key, data, p.ttl)
	pipe.Set(ctx, key+":count", len(snap.Opportunities), p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache.Publish: set %s: %w", key, err)
	}
	return nil
}

// Close cierra el cliente.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// SnapshotKey devuelve la clave Redis de un deporte, p. ej. "snapshot:nba".
func SnapshotKey(sport domain.Sport) string {
	return "snapshot:" + strings.ToLower(sport.String())
}
