package marketplace

import (
	"context"
	"fmt"
	"net/http"

	pkgerrors "github.com/markethub/storefront-gateway/pkg/errors"
)

func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if _, err := c.call(ctx, "get_cart", http.MethodGet, "/cart", nil, &cart); err != nil {
		return nil, err
	}
	if err := cart.normalize(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalid get_cart response")
	}
	return &cart, nil
}

// AddCartItem adds quantity units of a product; the server enforces stock.
func (c *Client) AddCartItem(ctx context.Context, productID int64, quantity int) (*Cart, error) {
	if productID <= 0 || quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id and positive quantity are required")
	}
	body := map[string]any{"product_id": productID, "quantity": quantity}
	if _, err := c.call(ctx, "add_cart_item", http.MethodPost, "/cart/items", body, nil); err != nil {
		return nil, err
	}
	return c.GetCart(ctx)
}

func (c *Client) UpdateCartItem(ctx context.Context, itemID int64, quantity int) (*Cart, error) {
	if itemID <= 0 || quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id and positive quantity are required")
	}
	body := map[string]any{"quantity": quantity}
	if _, err := c.call(ctx, "update_cart_item", http.MethodPut, fmt.Sprintf("/cart/items/%d", itemID), body, nil); err != nil {
		return nil, err
	}
	return c.GetCart(ctx)
}

func (c *Client) RemoveCartItem(ctx context.Context, itemID int64) (*Cart, error) {
	if itemID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if _, err := c.call(ctx, "remove_cart_item", http.MethodDelete, fmt.Sprintf("/cart/items/%d", itemID), nil, nil); err != nil {
		return nil, err
	}
	return c.GetCart(ctx)
}

// ClearCart empties the caller's cart.
func (c *Client) ClearCart(ctx context.Context) error {
	_, err := c.call(ctx, "clear_cart", http.MethodDelete, "/cart", nil, nil)
	return err
}
