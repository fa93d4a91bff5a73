// Package cache provides the shared key/value stores used for sessions,
// CSRF tokens and rate-limit counters.
package cache

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oarkflow/usermgr/pkg/contracts"
)

var (
	ErrMiss       = errors.New("cache: key not found")
	ErrNotInteger = errors.New("cache: value is not an integer")
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Open returns the cache for the configured driver. The redis driver
// accepts either a redis:// URL or a host:port address.
func Open(driver, redisURL string) (contracts.Cache, error) {
	switch strings.ToLower(driver) {
	case "", DriverMemory:
		return NewMemory(WithJanitor(time.Minute)), nil
	case DriverRedis:
		client, err := Connect(redisURL)
		if err != nil {
			return nil, err
		}
		return NewRedis(client, "usermgr:"), nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", driver)
	}
}
