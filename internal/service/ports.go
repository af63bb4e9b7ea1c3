package service

import (
	"context"

	"storefront/internal/models"
)

// Catalog is the product-lookup-and-stock interface the order flows
// consume. DecrementStock must be atomic per product: the stock check and
// the subtraction are one conditional operation against the store.
type Catalog interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	DecrementStock(ctx context.Context, id string, qty int) error
	IncrementStock(ctx context.Context, id string, qty int) error
}

// OrderLedger persists orders and their immutable line-item snapshots.
type OrderLedger interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	MarkCancelled(ctx context.Context, id, actor, reason string) (bool, error)
	UpdateOrderStatus(ctx context.Context, id string, from, to models.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error
	UpdateTracking(ctx context.Context, id string, upd models.TrackingUpdate) error
}

// Notifier dispatches order notifications. Failures never fail the
// operation that triggered them; the flows log and move on.
type Notifier interface {
	NotifyOrderCreated(ctx context.Context, order *models.Order) error
	NotifyOrderCancelled(ctx context.Context, order *models.Order) error
	NotifyOrderStatusChanged(ctx context.Context, order *models.Order, from models.OrderStatus) error
}

// ProductCache is the read-through cache in front of the catalog. All
// methods are best-effort; the database stays the source of truth.
type ProductCache interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	SetProduct(ctx context.Context, product *models.Product) error
	InvalidateProduct(ctx context.Context, id string) error
}

// ProductStore is the catalog-management interface behind CatalogService.
type ProductStore interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListProductsByCategory(ctx context.Context, categoryID string) ([]models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) (*models.Product, error)
	IncrementStock(ctx context.Context, id string, qty int) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*models.Category, error)
}

// ReviewStore persists reviews and recomputes the denormalized product
// rating on demand.
type ReviewStore interface {
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	CreateReview(ctx context.Context, review *models.Review) error
	ListReviewsByProduct(ctx context.Context, productID string) ([]models.Review, error)
	UpdateProductRating(ctx context.Context, productID string) error
}
