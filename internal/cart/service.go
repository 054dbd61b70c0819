package cart

import (
	"context"
	"fmt"

	"github.com/markethub/storefront-gateway/pkg/auth"
	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
	"github.com/markethub/storefront-gateway/pkg/logger"
	"github.com/markethub/storefront-gateway/pkg/marketplace"
)

// Marketplace is the cart surface of the marketplace API. Calls act on the cart of the
// token carried by ctx.
type Marketplace interface {
	GetCart(ctx context.Context) (*marketplace.Cart, error)
	AddCartItem(ctx context.Context, productID int64, quantity int) (*marketplace.Cart, error)
	UpdateCartItem(ctx context.Context, itemID int64, quantity int) (*marketplace.Cart, error)
	RemoveCartItem(ctx context.Context, itemID int64) (*marketplace.Cart, error)
	ClearCart(ctx context.Context) error
}

// Service exposes cart reads and edits. Edits are refused while a checkout holds the lock.
type Service interface {
	Get(ctx context.Context, actor auth.Actor) (*marketplace.Cart, error)
	AddItem(ctx context.Context, actor auth.Actor, productID int64, quantity int) (*marketplace.Cart, error)
	UpdateItem(ctx context.Context, actor auth.Actor, itemID int64, quantity int) (*marketplace.Cart, error)
	RemoveItem(ctx context.Context, actor auth.Actor, itemID int64) (*marketplace.Cart, error)
}

type service struct {
	api  Marketplace
	lock Lock
	logg *logger.Logger
}

// NewService builds a cart service backed by the marketplace client.
func NewService(api Marketplace, lock Lock, logg *logger.Logger) (Service, error) {
	if api == nil {
		return nil, fmt.Errorf("marketplace client required")
	}
	if lock == nil {
		return nil, fmt.Errorf("checkout lock required")
	}
	return &service{api: api, lock: lock, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor) (*marketplace.Cart, error) {
	return s.api.GetCart(ctx)
}

func (s *service) AddItem(ctx context.Context, actor auth.Actor, productID int64, quantity int) (*marketplace.Cart, error) {
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if err := s.ensureNoCheckout(ctx, actor); err != nil {
		return nil, err
	}
	return s.api.AddCartItem(ctx, productID, quantity)
}

func (s *service) UpdateItem(ctx context.Context, actor auth.Actor, itemID int64, quantity int) (*marketplace.Cart, error) {
	if itemID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if err := s.ensureNoCheckout(ctx, actor); err != nil {
		return nil, err
	}
	return s.api.UpdateCartItem(ctx, itemID, quantity)
}

func (s *service) RemoveItem(ctx context.Context, actor auth.Actor, itemID int64) (*marketplace.Cart, error) {
	if itemID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if err := s.ensureNoCheckout(ctx, actor); err != nil {
		return nil, err
	}
	return s.api.RemoveCartItem(ctx, itemID)
}

func (s *service) ensureNoCheckout(ctx context.Context, actor auth.Actor) error {
	held, err := s.lock.Held(ctx, actor.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check checkout lock")
	}
	if held {
		return pkgerrors.New(pkgerrors.CodeCheckoutInProgress, "checkout in progress; cart is locked")
	}
	return nil
}
