package marketplace

import (
	"context"
	"net/http"

	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
)

// GetProfile resolves the caller behind the forwarded token.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if _, err := c.call(ctx, "get_profile", http.MethodGet, "/profile", nil, &profile); err != nil {
		return nil, err
	}
	if err := profile.normalize(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid get_profile response")
	}
	return &profile, nil
}

// Ping checks that the marketplace answers at all; any HTTP response counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, "ping", http.MethodGet, "/categories", nil, nil)
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeDependency {
		return err
	}
	return nil
}
