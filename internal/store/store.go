package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "product", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts retrieves all active products
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE is_active ORDER BY name")
	return products, err
}

// ListProductsByCategory retrieves active products in a category
func (s *Store) ListProductsByCategory(ctx context.Context, categoryID string) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE category_id = $1 AND is_active ORDER BY name", categoryID)
	return products, err
}

// CreateProduct inserts a new product
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	query := `
		INSERT INTO products (id, name, description, price, stock, is_active, image_url, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	return s.db.GetContext(ctx, p, query,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.IsActive, p.ImageURL, p.CategoryID)
}

// UpdateProduct applies an allow-listed partial update and returns the
// resulting row. COALESCE keeps unset fields untouched.
func (s *Store) UpdateProduct(ctx context.Context, id string, upd models.ProductUpdate) (*models.Product, error) {
	query := `
		UPDATE products SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			price       = COALESCE($4, price),
			image_url   = COALESCE($5, image_url),
			category_id = COALESCE($6, category_id),
			is_active   = COALESCE($7, is_active),
			updated_at  = NOW()
		WHERE id = $1
		RETURNING *`

	var product models.Product
	err := s.db.GetContext(ctx, &product, query,
		id, upd.Name, upd.Description, upd.Price, upd.ImageURL, upd.CategoryID, upd.IsActive)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "product", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementStock atomically reserves stock for one product. The check and
// the decrement are a single conditional UPDATE so concurrent orders can
// never drive stock below zero. On a zero-row result the current row is
// re-read to classify the failure.
func (s *Store) DecrementStock(ctx context.Context, id string, qty int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND is_active AND stock >= $2`,
		id, qty)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	product, err := s.GetProductByID(ctx, id)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return &models.ProductUnavailableError{Name: product.Name}
	}
	return &models.InsufficientStockError{
		Name:      product.Name,
		Requested: qty,
		Available: product.Stock,
	}
}

// IncrementStock restores stock for one product. A missing product is
// reported as NotFound; callers restoring inventory for old orders may
// choose to ignore it.
func (s *Store) IncrementStock(ctx context.Context, id string, qty int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1`,
		id, qty)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &models.NotFoundError{Entity: "product", ID: id}
	}
	return nil
}

// ListCategories retrieves all categories
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY name")
	return categories, err
}

// GetCategoryByID retrieves a category by ID
func (s *Store) GetCategoryByID(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	err := s.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "category", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}
