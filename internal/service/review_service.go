package service

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// ReviewService handles review submission. The product rating recompute is
// invoked explicitly here, not discovered through any model registry.
type ReviewService struct {
	store  ReviewStore
	logger *zap.Logger
}

// NewReviewService creates a new review service
func NewReviewService(store ReviewStore) *ReviewService {
	return &ReviewService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// SubmitReviewRequest carries a new review's fields.
type SubmitReviewRequest struct {
	UserID  string `json:"-"`
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty"`
}

// SubmitReview persists a review and recomputes the product's denormalized
// rating fields.
func (s *ReviewService) SubmitReview(ctx context.Context, productID string, req *SubmitReviewRequest) (*models.Review, error) {
	ctx, span := util.StartSpan(ctx, "ReviewService.SubmitReview")
	defer span.End()

	if req.UserID == "" {
		return nil, &models.ValidationError{Field: "user_id", Reason: "required"}
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, &models.ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}

	if _, err := s.store.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}

	review := &models.Review{
		ProductID: productID,
		UserID:    req.UserID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}

	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}

	if err := s.store.UpdateProductRating(ctx, productID); err != nil {
		// the review is saved; a stale rating corrects itself on the next write
		s.logger.Error("Failed to recompute product rating",
			zap.String("product_id", productID),
			zap.Error(err))
	}

	util.ReviewsSubmittedTotal.Inc()
	s.logger.Info("Review submitted",
		zap.String("review_id", review.ID),
		zap.String("product_id", productID),
		zap.Int("rating", req.Rating))
	return review, nil
}

// ListReviews retrieves a product's reviews.
func (s *ReviewService) ListReviews(ctx context.Context, productID string) ([]models.Review, error) {
	if _, err := s.store.GetProductByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.ListReviewsByProduct(ctx, productID)
}
