// Package rediskv keeps small per-user state and change notifications in
// Redis.
package rediskv

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

const (
	dismissedKeyPrefix = "jobrec:dismissed:"

	// ChannelEmbeddingUpdated receives an EmbeddingEvent whenever a vector
	// is written.
	ChannelEmbeddingUpdated = "jobrec:embedding-updated"
)

// NewClient parses a redis:// URL and verifies the connection.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Dismissed is a storage.DismissedStore on Redis sets.
type Dismissed struct {
	client redis.Cmdable
}

// NewDismissed wraps a Redis client.
func NewDismissed(client redis.Cmdable) *Dismissed {
	return &Dismissed{client: client}
}

func (d *Dismissed) Dismissed(ctx context.Context, userID string) ([]string, error) {
	ids, err := d.client.SMembers(ctx, dismissedKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read dismissed jobs for %s: %w", userID, err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (d *Dismissed) Dismiss(ctx context.Context, userID string, jobIDs ...string) error {
	if len(jobIDs) == 0 {
		return nil
	}
	members := make([]any, 0, len(jobIDs))
	for _, id := range jobIDs {
		members = append(members, id)
	}
	if err := d.client.SAdd(ctx, dismissedKey(userID), members...).Err(); err != nil {
		return fmt.Errorf("dismiss jobs for %s: %w", userID, err)
	}
	return nil
}

func dismissedKey(userID string) string {
	return dismissedKeyPrefix + userID
}

// EmbeddingEvent announces a written vector.
type EmbeddingEvent struct {
	Kind      string `json:"kind"`
	ID        string `json:"id"`
	Dimension int    `json:"dimension"`
}

// Notifier publishes embedding events.
type Notifier struct {
	client redis.Cmdable
}

// NewNotifier wraps a Redis client.
func NewNotifier(client redis.Cmdable) *Notifier {
	return &Notifier{client: client}
}

// EmbeddingUpdated publishes ev on ChannelEmbeddingUpdated.
func (n *Notifier) EmbeddingUpdated(ctx context.Context, ev EmbeddingEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, ChannelEmbeddingUpdated, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ChannelEmbeddingUpdated, err)
	}
	return nil
}
