package service

import (
	"context"
	"errors"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// notifyTimeout bounds the fire-and-forget notification dispatch, which is
// detached from the request context.
const notifyTimeout = 10 * time.Second

// OrderService implements the order placement and cancellation flows.
type OrderService struct {
	catalog  Catalog
	ledger   OrderLedger
	notifier Notifier
	cache    ProductCache
	logger   *zap.Logger
}

// NewOrderService creates a new order service. cache may be nil.
func NewOrderService(catalog Catalog, ledger OrderLedger, notifier Notifier, cache ProductCache) *OrderService {
	return &OrderService{
		catalog:  catalog,
		ledger:   ledger,
		notifier: notifier,
		cache:    cache,
		logger:   util.GetLogger(),
	}
}

// ItemRequest is one (product, quantity) pair in a placement request.
type ItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// PlaceOrderRequest carries everything needed to place an order. Any
// client-supplied total is ignored; the server recomputes it from the
// snapshotted line items.
type PlaceOrderRequest struct {
	UserID          string         `json:"-"`
	Items           []ItemRequest  `json:"items" binding:"required,min=1,dive"`
	ShippingAddress models.Address `json:"shipping_address" binding:"required"`
	PaymentMethod   string         `json:"payment_method" binding:"required"`
	Notes           string         `json:"notes,omitempty"`
	IdempotencyKey  string         `json:"idempotency_key,omitempty"`
}

func (r *PlaceOrderRequest) validate() error {
	if r.UserID == "" {
		return &models.ValidationError{Field: "user_id", Reason: "required"}
	}
	if len(r.Items) == 0 {
		return &models.ValidationError{Field: "items", Reason: "at least one item is required"}
	}
	for _, item := range r.Items {
		if item.ProductID == "" {
			return &models.ValidationError{Field: "items.product_id", Reason: "required"}
		}
		if item.Quantity < 1 {
			return &models.ValidationError{Field: "items.quantity", Reason: "must be at least 1"}
		}
	}
	addr := r.ShippingAddress
	if addr.FullName == "" || addr.Street == "" || addr.City == "" || addr.PostalCode == "" || addr.Country == "" {
		return &models.ValidationError{Field: "shipping_address", Reason: "full_name, street, city, postal_code and country are required"}
	}
	if r.PaymentMethod == "" {
		return &models.ValidationError{Field: "payment_method", Reason: "required"}
	}
	return nil
}

// PlaceOrder validates the requested items against the catalog, reserves
// stock item by item in the order supplied by the caller, snapshots each
// product's current name/price/image into a line item, and commits one
// order with a server-computed total. If any item fails partway through,
// every reservation already taken is restored before the error is
// returned, so a failed placement never mutates the catalog.
func (s *OrderService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderPlacementLatency.Observe(time.Since(start).Seconds())
	}()

	if err := req.validate(); err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := s.ledger.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.logger.Info("Duplicate placement request",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("order_id", existing.ID))
		return existing, nil
	}

	items, err := s.reserveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, item := range items {
		total += item.UnitPrice * int64(item.Quantity)
	}

	order := &models.Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		Items:           items,
		TotalAmount:     total,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
		IdempotencyKey:  req.IdempotencyKey,
	}

	if err := s.ledger.CreateOrder(ctx, order); err != nil {
		s.restoreItems(ctx, items)
		util.OrdersFailedTotal.WithLabelValues("ledger_error").Inc()
		return nil, err
	}

	util.OrdersPlacedTotal.Inc()
	s.invalidateProducts(ctx, items)
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Int64("total_amount", order.TotalAmount))

	go s.notify("created", order, func(ctx context.Context) error {
		return s.notifier.NotifyOrderCreated(ctx, order)
	})

	return order, nil
}

// reserveItems walks the requested items in caller order. Each reservation
// is the catalog's atomic conditional decrement; on the first failure all
// prior reservations are restored and the typed failure is returned.
func (s *OrderService) reserveItems(ctx context.Context, requested []ItemRequest) ([]models.LineItem, error) {
	items := make([]models.LineItem, 0, len(requested))

	for _, req := range requested {
		product, err := s.catalog.GetProductByID(ctx, req.ProductID)
		if err != nil {
			s.restoreItems(ctx, items)
			util.OrdersFailedTotal.WithLabelValues("product_not_found").Inc()
			return nil, err
		}

		if !product.IsActive {
			s.restoreItems(ctx, items)
			util.OrdersFailedTotal.WithLabelValues("product_unavailable").Inc()
			return nil, &models.ProductUnavailableError{Name: product.Name}
		}

		if product.Stock < req.Quantity {
			s.restoreItems(ctx, items)
			util.OrdersFailedTotal.WithLabelValues("insufficient_stock").Inc()
			return nil, &models.InsufficientStockError{
				Name:      product.Name,
				Requested: req.Quantity,
				Available: product.Stock,
			}
		}

		if err := s.catalog.DecrementStock(ctx, req.ProductID, req.Quantity); err != nil {
			s.restoreItems(ctx, items)
			util.OrdersFailedTotal.WithLabelValues("reservation_failed").Inc()
			return nil, err
		}

		util.StockReservedTotal.Add(float64(req.Quantity))

		items = append(items, models.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  req.Quantity,
			UnitPrice: product.Price,
			ImageURL:  product.ImageURL,
		})
	}

	return items, nil
}

// restoreItems compensates reservations already taken by a failed
// placement. Restoration is best-effort: a product deleted mid-flight is
// skipped, other errors are logged.
func (s *OrderService) restoreItems(ctx context.Context, items []models.LineItem) {
	for _, item := range items {
		err := s.catalog.IncrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			var notFound *models.NotFoundError
			if errors.As(err, &notFound) {
				continue
			}
			s.logger.Error("Failed to restore reserved stock",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
			continue
		}
		util.StockRestoredTotal.Add(float64(item.Quantity))
	}
	s.invalidateProducts(ctx, items)
}

// CancelOrder transitions an order to cancelled and restores its reserved
// stock. The status flip is a conditional update persisted before any
// stock is restored, so restoration happens exactly once no matter how
// many cancellation attempts race.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, actorID, reason string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder")
	defer span.End()

	if actorID == "" {
		return nil, &models.ValidationError{Field: "actor_id", Reason: "required"}
	}

	order, err := s.ledger.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusCancelled {
		return nil, models.ErrAlreadyCancelled
	}
	if order.Status == models.OrderStatusDelivered {
		return nil, &models.TerminalStateError{State: models.OrderStatusDelivered}
	}

	flipped, err := s.ledger.MarkCancelled(ctx, orderID, actorID, reason)
	if err != nil {
		return nil, err
	}
	if !flipped {
		// lost the race: someone else moved the order to a terminal state
		current, err := s.ledger.GetOrderByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.OrderStatusCancelled {
			return nil, models.ErrAlreadyCancelled
		}
		return nil, &models.TerminalStateError{State: current.Status}
	}

	// Restoration is best-effort against the current catalog: a product
	// deleted since purchase is skipped without failing the cancellation.
	for _, item := range order.Items {
		err := s.catalog.IncrementStock(ctx, item.ProductID, item.Quantity)
		if err != nil {
			var notFound *models.NotFoundError
			if errors.As(err, &notFound) {
				s.logger.Warn("Product gone, skipping stock restoration",
					zap.String("order_id", orderID),
					zap.String("product_id", item.ProductID))
				continue
			}
			s.logger.Error("Failed to restore stock on cancellation",
				zap.String("order_id", orderID),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
			continue
		}
		util.StockRestoredTotal.Add(float64(item.Quantity))
	}

	now := time.Now()
	order.Status = models.OrderStatusCancelled
	order.CancelledAt = &now
	order.CancelledBy = &actorID
	if reason != "" {
		order.CancellationReason = &reason
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		order.PaymentStatus = models.PaymentStatusRefunded
	}

	util.OrdersCancelledTotal.Inc()
	s.invalidateProducts(ctx, order.Items)
	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID),
		zap.String("cancelled_by", actorID))

	go s.notify("cancelled", order, func(ctx context.Context) error {
		return s.notifier.NotifyOrderCancelled(ctx, order)
	})

	return order, nil
}

// GetOrder retrieves an order with its line items.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.ledger.GetOrderByID(ctx, orderID)
}

// ListOrders retrieves a buyer's order history.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.ledger.GetOrdersByUser(ctx, userID)
}

// AdvanceStatus moves an order forward through the fulfilment state
// machine. Cancellation goes through CancelOrder, never through here.
func (s *OrderService) AdvanceStatus(ctx context.Context, orderID string, to models.OrderStatus) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AdvanceStatus")
	defer span.End()

	if !to.Valid() {
		return nil, &models.ValidationError{Field: "status", Reason: "unknown status"}
	}
	if to == models.OrderStatusCancelled {
		return nil, &models.ValidationError{Field: "status", Reason: "use the cancel operation"}
	}

	order, err := s.ledger.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status.IsTerminal() {
		return nil, &models.TerminalStateError{State: order.Status}
	}
	if !models.CanTransition(order.Status, to) {
		return nil, &models.ValidationError{
			Field:  "status",
			Reason: string(order.Status) + " cannot transition to " + string(to),
		}
	}

	from := order.Status
	if err := s.ledger.UpdateOrderStatus(ctx, orderID, from, to); err != nil {
		return nil, err
	}

	now := time.Now()
	order.Status = to
	switch to {
	case models.OrderStatusShipped:
		order.ShippedAt = &now
	case models.OrderStatusDelivered:
		order.DeliveredAt = &now
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	go s.notify("status_changed", order, func(ctx context.Context) error {
		return s.notifier.NotifyOrderStatusChanged(ctx, order, from)
	})

	return order, nil
}

// UpdatePayment records a payment status change, tracked independently of
// fulfilment status.
func (s *OrderService) UpdatePayment(ctx context.Context, orderID string, to models.PaymentStatus) (*models.Order, error) {
	if !to.Valid() {
		return nil, &models.ValidationError{Field: "payment_status", Reason: "unknown payment status"}
	}

	order, err := s.ledger.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !models.CanTransitionPayment(order.PaymentStatus, to) {
		return nil, &models.ValidationError{
			Field:  "payment_status",
			Reason: string(order.PaymentStatus) + " cannot transition to " + string(to),
		}
	}

	if err := s.ledger.UpdatePaymentStatus(ctx, orderID, to); err != nil {
		return nil, err
	}

	order.PaymentStatus = to
	return order, nil
}

// UpdateTracking applies an allow-listed tracking update to an in-flight
// order.
func (s *OrderService) UpdateTracking(ctx context.Context, orderID string, upd models.TrackingUpdate) (*models.Order, error) {
	order, err := s.ledger.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusCancelled {
		return nil, &models.TerminalStateError{State: models.OrderStatusCancelled}
	}

	if err := s.ledger.UpdateTracking(ctx, orderID, upd); err != nil {
		return nil, err
	}

	if upd.Carrier != nil {
		order.Carrier = upd.Carrier
	}
	if upd.TrackingNumber != nil {
		order.TrackingNumber = upd.TrackingNumber
	}
	return order, nil
}

// notify dispatches a notification detached from the request. Failure is
// logged and counted, never surfaced to the caller.
func (s *OrderService) notify(kind string, order *models.Order, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		util.NotificationsFailedTotal.WithLabelValues(kind).Inc()
		s.logger.Error("Failed to dispatch order notification",
			zap.String("kind", kind),
			zap.String("order_id", order.ID),
			zap.Error(err))
		return
	}
	util.NotificationsSentTotal.WithLabelValues(kind).Inc()
}

// invalidateProducts drops mutated products from the cache, best-effort.
func (s *OrderService) invalidateProducts(ctx context.Context, items []models.LineItem) {
	if s.cache == nil {
		return
	}
	for _, item := range items {
		if err := s.cache.InvalidateProduct(ctx, item.ProductID); err != nil {
			s.logger.Warn("Failed to invalidate product cache",
				zap.String("product_id", item.ProductID),
				zap.Error(err))
		}
	}
}
