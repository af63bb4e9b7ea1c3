package store

import (
	"context"
	"fmt"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// CreateReview inserts a review. One review per buyer per product; a
// duplicate is rejected as a validation failure.
func (s *Store) CreateReview(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}

	query := `
		INSERT INTO reviews (id, product_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := s.db.GetContext(ctx, review, query,
		review.ID, review.ProductID, review.UserID, review.Rating, review.Comment)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
		return &models.ValidationError{Field: "review", Reason: "product already reviewed by this user"}
	}
	if err != nil {
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// ListReviewsByProduct retrieves all reviews for a product, newest first.
func (s *Store) ListReviewsByProduct(ctx context.Context, productID string) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.SelectContext(ctx, &reviews,
		"SELECT * FROM reviews WHERE product_id = $1 ORDER BY created_at DESC", productID)
	return reviews, err
}

// UpdateProductRating recomputes the denormalized rating fields on a
// product from its reviews. Called explicitly by the review flow after
// every review write.
func (s *Store) UpdateProductRating(ctx context.Context, productID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE products SET
			rating = COALESCE(agg.avg_rating, 0),
			num_reviews = agg.cnt,
			updated_at = NOW()
		FROM (
			SELECT AVG(rating)::float8 AS avg_rating, COUNT(*) AS cnt
			FROM reviews WHERE product_id = $1
		) agg
		WHERE id = $1`,
		productID)
	if err != nil {
		return fmt.Errorf("failed to recompute product rating: %w", err)
	}
	return nil
}
