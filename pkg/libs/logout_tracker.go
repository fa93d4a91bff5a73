package libs

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/thejerf/abtime"

	"github.com/oarkflow/usermgr/pkg/cache"
	"github.com/oarkflow/usermgr/pkg/contracts"
)

// LogoutTracker records when a user last logged out so remember-me tokens
// minted before that moment stop working. Markers live in the shared cache
// for as long as such a token could still be valid.
type LogoutTracker struct {
	cache contracts.Cache
	ttl   time.Duration
	clock abtime.AbstractTime
}

func NewLogoutTracker(store contracts.Cache, ttl time.Duration, clock abtime.AbstractTime) *LogoutTracker {
	if clock == nil {
		clock = abtime.NewRealTime()
	}
	return &LogoutTracker{cache: store, ttl: ttl, clock: clock}
}

func logoutKey(userID string) string {
	return "logout:" + userID
}

func (t *LogoutTracker) SetUserLogout(ctx context.Context, userID string) error {
	now := strconv.FormatInt(t.clock.Now().UnixMilli(), 10)
	return t.cache.Set(ctx, logoutKey(userID), []byte(now), t.ttl)
}

// IsUserLoggedOut reports whether a logout was recorded at or after
// issuedAtMs.
func (t *LogoutTracker) IsUserLoggedOut(ctx context.Context, userID string, issuedAtMs int64) (bool, error) {
	raw, err := t.cache.Get(ctx, logoutKey(userID))
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	logoutAt, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return false, err
	}
	return issuedAtMs <= logoutAt, nil
}

func (t *LogoutTracker) ClearUserLogout(ctx context.Context, userID string) error {
	return t.cache.Delete(ctx, logoutKey(userID))
}
