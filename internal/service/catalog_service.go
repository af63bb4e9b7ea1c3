package service

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CatalogService handles catalog browsing and administration. Reads go
// through the product cache when one is configured.
type CatalogService struct {
	store  ProductStore
	cache  ProductCache
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(store ProductStore, cache ProductCache) *CatalogService {
	return &CatalogService{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// GetProduct retrieves a product, read-through cached.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if s.cache != nil {
		cached, err := s.cache.GetProduct(ctx, id)
		if err != nil {
			s.logger.Warn("Product cache read failed", zap.String("product_id", id), zap.Error(err))
		} else if cached != nil {
			util.ProductCacheHits.Inc()
			return cached, nil
		} else {
			util.ProductCacheMisses.Inc()
		}
	}

	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetProduct(ctx, product); err != nil {
			s.logger.Warn("Product cache write failed", zap.String("product_id", id), zap.Error(err))
		}
	}
	return product, nil
}

// ListProducts lists all active products.
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.ListProducts(ctx)
}

// ListProductsByCategory lists active products in a category.
func (s *CatalogService) ListProductsByCategory(ctx context.Context, categoryID string) ([]models.Product, error) {
	if _, err := s.store.GetCategoryByID(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.store.ListProductsByCategory(ctx, categoryID)
}

// ListCategories lists all categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}

// CreateProductRequest carries a new product's fields.
type CreateProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price" binding:"min=0"`
	Stock       int    `json:"stock" binding:"min=0"`
	ImageURL    string `json:"image_url,omitempty"`
	CategoryID  string `json:"category_id,omitempty"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// CreateProduct adds a product to the catalog.
func (s *CatalogService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	if req.Name == "" {
		return nil, &models.ValidationError{Field: "name", Reason: "required"}
	}
	if req.Price < 0 {
		return nil, &models.ValidationError{Field: "price", Reason: "must be non-negative"}
	}
	if req.Stock < 0 {
		return nil, &models.ValidationError{Field: "stock", Reason: "must be non-negative"}
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		IsActive:    active,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
	}

	if err := s.store.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name))
	return product, nil
}

// UpdateProduct applies an allow-listed partial update. Stock, rating and
// identifiers cannot be changed through this path.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) (*models.Product, error) {
	if upd.Name != nil && *upd.Name == "" {
		return nil, &models.ValidationError{Field: "name", Reason: "cannot be empty"}
	}
	if upd.Price != nil && *upd.Price < 0 {
		return nil, &models.ValidationError{Field: "price", Reason: "must be non-negative"}
	}

	product, err := s.store.UpdateProduct(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return product, nil
}

// Restock increases a product's stock by a positive quantity.
func (s *CatalogService) Restock(ctx context.Context, id string, qty int) error {
	if qty < 1 {
		return &models.ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}

	if err := s.store.IncrementStock(ctx, id, qty); err != nil {
		return err
	}

	s.invalidate(ctx, id)
	s.logger.Info("Product restocked", zap.String("product_id", id), zap.Int("quantity", qty))
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		s.logger.Warn("Failed to invalidate product cache",
			zap.String("product_id", id), zap.Error(err))
	}
}
