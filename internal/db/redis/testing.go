package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps a prepared rueidis client, such as rueidis/mock (test-only).
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
