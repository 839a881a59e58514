package service

import (
	"context"

	models "storefront-cart/model"
)

// CartService is the cart surface offered to UI consumers.
type CartService interface {
	Cart() models.Cart
	Summary() models.Summary
	AddProduct(ctx context.Context, productID int64) error
	RemoveProduct(ctx context.Context, productID int64) error
	UpdateProductAmount(ctx context.Context, productID int64, amount int) error
	Clear(ctx context.Context) error
}

var _ CartService = (*CartStore)(nil)
