package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/markethub/storefront-gateway/pkg/auth"
	"github.com/markethub/storefront-gateway/pkg/config"
	"github.com/markethub/storefront-gateway/pkg/enums"
	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
	"github.com/markethub/storefront-gateway/pkg/logger"
	"github.com/markethub/storefront-gateway/pkg/marketplace"
	"github.com/markethub/storefront-gateway/pkg/redis"
)

// ProfileSource loads the caller's profile using the token carried by ctx.
type ProfileSource interface {
	GetProfile(ctx context.Context) (*marketplace.Profile, error)
}

// profileCache is the subset of the redis client used to memoize profiles.
type profileCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ProfileKey(userID, fingerprint string) string
}

type cachedProfile struct {
	Role  enums.UserRole `json:"role"`
	HubID *int64         `json:"hub_id,omitempty"`
}

// Resolver turns a bearer token into an Actor. The token proves identity; the role always
// comes from the marketplace profile, never from the token.
type Resolver struct {
	jwt      config.JWTConfig
	profiles ProfileSource
	cache    profileCache
	ttl      time.Duration
	clock    clockwork.Clock
	logg     *logger.Logger
}

// NewResolver builds a resolver. cache may be nil, in which case every request loads the profile.
func NewResolver(jwtCfg config.JWTConfig, profiles ProfileSource, cache profileCache, cfg config.SessionConfig, clock clockwork.Clock, logg *logger.Logger) (*Resolver, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile source required")
	}
	if jwtCfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Resolver{
		jwt:      jwtCfg,
		profiles: profiles,
		cache:    cache,
		ttl:      cfg.ProfileCacheTTL,
		clock:    clock,
		logg:     logg,
	}, nil
}

// Resolve validates the token and returns the caller with the token attached for forwarding.
func (r *Resolver) Resolve(ctx context.Context, token string) (auth.Actor, error) {
	claims, err := auth.ParseAccessToken(r.jwt, token)
	if err != nil {
		return auth.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	actor := auth.Actor{UserID: claims.UserID, Token: token}
	ctx = marketplace.WithToken(ctx, token)

	key := ""
	if r.cache != nil {
		key = r.cache.ProfileKey(claims.UserID, auth.Fingerprint(token))
		if cached, ok := r.lookup(ctx, key); ok {
			actor.Role = cached.Role
			actor.HubID = cached.HubID
			return actor, nil
		}
	}

	profile, err := r.profiles.GetProfile(ctx)
	if err != nil {
		return auth.Actor{}, err
	}
	if strconv.FormatInt(profile.ID, 10) != claims.UserID {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "token does not match profile")
	}
	actor.Role = profile.Role
	actor.HubID = profile.HubID

	if key != "" {
		r.store(ctx, key, cachedProfile{Role: profile.Role, HubID: profile.HubID}, claims.ExpiresAt)
	}
	return actor, nil
}

func (r *Resolver) lookup(ctx context.Context, key string) (cachedProfile, bool) {
	raw, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.warn(ctx, "session.profile_cache.read_failed", err)
		}
		return cachedProfile{}, false
	}
	var cached cachedProfile
	if err := json.Unmarshal([]byte(raw), &cached); err != nil || !cached.Role.IsValid() {
		return cachedProfile{}, false
	}
	return cached, true
}

// store caches the profile no longer than the token stays valid.
func (r *Resolver) store(ctx context.Context, key string, profile cachedProfile, expiresAt time.Time) {
	ttl := r.ttl
	if remaining := expiresAt.Sub(r.clock.Now()); remaining < ttl {
		ttl = remaining
	}
	if ttl <= 0 {
		return
	}
	payload, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, string(payload), ttl); err != nil {
		r.warn(ctx, "session.profile_cache.write_failed", err)
	}
}

func (r *Resolver) warn(ctx context.Context, msg string, err error) {
	if r.logg != nil {
		r.logg.WarnErr(ctx, msg, err)
	}
}
