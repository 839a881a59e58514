package catalog

import (
	"context"

	models "storefront-cart/model"
)

// Catalog is the read-only stock and product API the cart validates against.
type Catalog interface {
	Stock(ctx context.Context, productID int64) (models.Stock, error)
	Product(ctx context.Context, productID int64) (models.Product, error)
}
