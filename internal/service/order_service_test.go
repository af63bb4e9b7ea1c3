package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog gives the same guarantee the real store does: the stock
// check and decrement are one atomic operation per product.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*models.Product
}

func newFakeCatalog(products ...*models.Product) *fakeCatalog {
	m := make(map[string]*models.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &fakeCatalog{products: m}
}

func (f *fakeCatalog) GetProductByID(_ context.Context, id string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "product", ID: id}
	}
	cp := *p
	return &cp, nil
}

func (f *fakeCatalog) DecrementStock(_ context.Context, id string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return &models.NotFoundError{Entity: "product", ID: id}
	}
	if !p.IsActive {
		return &models.ProductUnavailableError{Name: p.Name}
	}
	if p.Stock < qty {
		return &models.InsufficientStockError{Name: p.Name, Requested: qty, Available: p.Stock}
	}
	p.Stock -= qty
	return nil
}

func (f *fakeCatalog) IncrementStock(_ context.Context, id string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return &models.NotFoundError{Entity: "product", ID: id}
	}
	p.Stock += qty
	return nil
}

func (f *fakeCatalog) stock(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].Stock
}

func (f *fakeCatalog) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, id)
}

type fakeLedger struct {
	mu         sync.Mutex
	orders     map[string]*models.Order
	byKey      map[string]string
	failCreate bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		orders: make(map[string]*models.Order),
		byKey:  make(map[string]string),
	}
}

func (f *fakeLedger) CreateOrder(_ context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return errors.New("ledger unavailable")
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	cp := *order
	cp.Items = append([]models.LineItem(nil), order.Items...)
	f.orders[order.ID] = &cp
	if order.IdempotencyKey != "" {
		f.byKey[order.IdempotencyKey] = order.ID
	}
	return nil
}

func (f *fakeLedger) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, &models.NotFoundError{Entity: "order", ID: id}
	}
	cp := *order
	cp.Items = append([]models.LineItem(nil), order.Items...)
	return &cp, nil
}

func (f *fakeLedger) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	f.mu.Lock()
	id, ok := f.byKey[key]
	f.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return f.GetOrderByID(ctx, id)
}

func (f *fakeLedger) GetOrdersByUser(_ context.Context, userID string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Order
	for _, order := range f.orders {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (f *fakeLedger) MarkCancelled(_ context.Context, id, actor, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return false, nil
	}
	if order.Status.IsTerminal() {
		return false, nil
	}
	now := time.Now()
	order.Status = models.OrderStatusCancelled
	order.CancelledAt = &now
	order.CancelledBy = &actor
	if reason != "" {
		order.CancellationReason = &reason
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		order.PaymentStatus = models.PaymentStatusRefunded
	}
	return true, nil
}

func (f *fakeLedger) UpdateOrderStatus(_ context.Context, id string, from, to models.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != from {
		return &models.NotFoundError{Entity: "order", ID: id}
	}
	order.Status = to
	now := time.Now()
	switch to {
	case models.OrderStatusShipped:
		order.ShippedAt = &now
	case models.OrderStatusDelivered:
		order.DeliveredAt = &now
	}
	return nil
}

func (f *fakeLedger) UpdatePaymentStatus(_ context.Context, id string, status models.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return &models.NotFoundError{Entity: "order", ID: id}
	}
	order.PaymentStatus = status
	return nil
}

func (f *fakeLedger) UpdateTracking(_ context.Context, id string, upd models.TrackingUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return &models.NotFoundError{Entity: "order", ID: id}
	}
	if upd.Carrier != nil {
		order.Carrier = upd.Carrier
	}
	if upd.TrackingNumber != nil {
		order.TrackingNumber = upd.TrackingNumber
	}
	return nil
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type fakeNotifier struct {
	mu        sync.Mutex
	created   int
	cancelled int
	changed   int
	fail      bool
}

func (f *fakeNotifier) NotifyOrderCreated(context.Context, *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	if f.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (f *fakeNotifier) NotifyOrderCancelled(context.Context, *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
	if f.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (f *fakeNotifier) NotifyOrderStatusChanged(context.Context, *models.Order, models.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed++
	return nil
}

func (f *fakeNotifier) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created, f.cancelled
}

func testProduct(id string, price int64, stock int) *models.Product {
	return &models.Product{
		ID:       id,
		Name:     "Product " + id,
		Price:    price,
		Stock:    stock,
		IsActive: true,
		ImageURL: "https://img.example/" + id + ".jpg",
	}
}

func testAddress() models.Address {
	return models.Address{
		FullName:   "Test Buyer",
		Street:     "1 Main St",
		City:       "Testville",
		PostalCode: "12345",
		Country:    "US",
	}
}

func placeRequest(items ...ItemRequest) *PlaceOrderRequest {
	return &PlaceOrderRequest{
		UserID:          "buyer-1",
		Items:           items,
		ShippingAddress: testAddress(),
		PaymentMethod:   "card",
	}
}

func TestPlaceOrder(t *testing.T) {
	catalog := newFakeCatalog(testProduct("p1", 1000, 5))
	ledger := newFakeLedger()
	notifier := &fakeNotifier{}
	svc := NewOrderService(catalog, ledger, notifier, nil)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 3},
	))
	require.NoError(t, err)

	assert.Equal(t, 2, catalog.stock("p1"))
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, int64(3*1000), order.TotalAmount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Product p1", order.Items[0].Name)
	assert.Equal(t, int64(1000), order.Items[0].UnitPrice)

	stored, err := ledger.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.TotalAmount, stored.TotalAmount)

	assert.Eventually(t, func() bool {
		created, _ := notifier.counts()
		return created == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	catalog := newFakeCatalog(testProduct("p1", 1000, 2))
	ledger := newFakeLedger()
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	_, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 3},
	))

	var insufficient *models.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "Product p1", insufficient.Name)
	assert.Equal(t, 3, insufficient.Requested)
	assert.Equal(t, 2, insufficient.Available)

	assert.Equal(t, 2, catalog.stock("p1"), "stock must be untouched")
	assert.Equal(t, 0, ledger.count(), "no order may be created")
}

func TestPlaceOrderProductNotFound(t *testing.T) {
	catalog := newFakeCatalog()
	ledger := newFakeLedger()
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	_, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "ghost", Quantity: 1},
	))

	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "product", notFound.Entity)
	assert.Equal(t, "ghost", notFound.ID)
	assert.Equal(t, 0, ledger.count())
}

func TestPlaceOrderInactiveProduct(t *testing.T) {
	inactive := testProduct("p1", 1000, 5)
	inactive.IsActive = false
	catalog := newFakeCatalog(inactive)
	ledger := newFakeLedger()
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	_, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 1},
	))

	var unavailable *models.ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "Product p1", unavailable.Name)
	assert.Equal(t, 5, catalog.stock("p1"))
	assert.Equal(t, 0, ledger.count())
}

func TestPlaceOrderRestoresEarlierItemsOnMidLoopFailure(t *testing.T) {
	catalog := newFakeCatalog(
		testProduct("p1", 1000, 5),
		testProduct("p2", 500, 1),
	)
	ledger := newFakeLedger()
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	// p1 reserves fine, p2 fails; p1's reservation must be compensated
	_, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 3},
		ItemRequest{ProductID: "p2", Quantity: 2},
	))

	var insufficient *models.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, "Product p2", insufficient.Name)

	assert.Equal(t, 5, catalog.stock("p1"), "earlier reservation must be restored")
	assert.Equal(t, 1, catalog.stock("p2"))
	assert.Equal(t, 0, ledger.count())
}

func TestPlaceOrderRestoresStockOnLedgerFailure(t *testing.T) {
	catalog := newFakeCatalog(testProduct("p1", 1000, 5))
	ledger := newFakeLedger()
	ledger.failCreate = true
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	_, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 3},
	))
	require.Error(t, err)

	assert.Equal(t, 5, catalog.stock("p1"))
}

func TestPlaceOrderIdempotency(t *testing.T) {
	catalog := newFakeCatalog(testProduct("p1", 1000, 5))
	ledger := newFakeLedger()
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	req := placeRequest(ItemRequest{ProductID: "p1", Quantity: 2})
	req.IdempotencyKey = "key-1"

	first, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	again := placeRequest(ItemRequest{ProductID: "p1", Quantity: 2})
	again.IdempotencyKey = "key-1"

	second, err := svc.PlaceOrder(context.Background(), again)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, catalog.stock("p1"), "stock reserved exactly once")
	assert.Equal(t, 1, ledger.count())
}

func TestPlaceOrderValidation(t *testing.T) {
	catalog := newFakeCatalog(testProduct("p1", 1000, 5))
	svc := NewOrderService(catalog, newFakeLedger(), &fakeNotifier{}, nil)

	cases := []struct {
		name  string
		req   *PlaceOrderRequest
		field string
	}{
		{
			name: "missing user",
			req: &PlaceOrderRequest{
				Items:           []ItemRequest{{ProductID: "p1", Quantity: 1}},
				ShippingAddress: testAddress(),
				PaymentMethod:   "card",
			},
			field: "user_id",
		},
		{
			name:  "no items",
			req:   placeRequest(),
			field: "items",
		},
		{
			name:  "zero quantity",
			req:   placeRequest(ItemRequest{ProductID: "p1", Quantity: 0}),
			field: "items.quantity",
		},
		{
			name: "incomplete address",
			req: &PlaceOrderRequest{
				UserID:          "buyer-1",
				Items:           []ItemRequest{{ProductID: "p1", Quantity: 1}},
				ShippingAddress: models.Address{FullName: "Test Buyer"},
				PaymentMethod:   "card",
			},
			field: "shipping_address",
		},
		{
			name: "missing payment method",
			req: &PlaceOrderRequest{
				UserID:          "buyer-1",
				Items:           []ItemRequest{{ProductID: "p1", Quantity: 1}},
				ShippingAddress: testAddress(),
			},
			field: "payment_method",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.PlaceOrder(context.Background(), c.req)
			var validation *models.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, c.field, validation.Field)
		})
	}

	assert.Equal(t, 5, catalog.stock("p1"))
}

func TestPlaceOrderTotalIgnoresLivePriceChanges(t *testing.T) {
	product := testProduct("p1", 1000, 5)
	catalog := newFakeCatalog(product)
	ledger := newFakeLedger()
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 2},
	))
	require.NoError(t, err)
	require.Equal(t, int64(2000), order.TotalAmount)

	// mutate the live product after the snapshot was taken
	catalog.mu.Lock()
	catalog.products["p1"].Price = 9999
	catalog.products["p1"].Name = "Renamed"
	catalog.mu.Unlock()

	stored, err := ledger.GetOrderByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), stored.TotalAmount)
	assert.Equal(t, "Product p1", stored.Items[0].Name)
	assert.Equal(t, int64(1000), stored.Items[0].UnitPrice)
}

func TestConcurrentPlacementsNeverOversell(t *testing.T) {
	const initialStock = 10
	const attempts = 25

	catalog := newFakeCatalog(testProduct("p1", 1000, initialStock))
	ledger := newFakeLedger()
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(context.Background(), placeRequest(
				ItemRequest{ProductID: "p1", Quantity: 1},
			))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, failures int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		failures++
		var insufficient *models.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
	}

	assert.Equal(t, initialStock, successes, "successful decrements must not exceed initial stock")
	assert.Equal(t, attempts-initialStock, failures)
	assert.Equal(t, 0, catalog.stock("p1"))
	assert.GreaterOrEqual(t, catalog.stock("p1"), 0, "stock must never go negative")
}

func TestCancelOrderRestoresStock(t *testing.T) {
	catalog := newFakeCatalog(testProduct("p1", 1000, 5))
	ledger := newFakeLedger()
	notifier := &fakeNotifier{}
	svc := NewOrderService(catalog, ledger, notifier, nil)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 3},
	))
	require.NoError(t, err)
	require.Equal(t, 2, catalog.stock("p1"))

	cancelled, err := svc.CancelOrder(context.Background(), order.ID, "buyer-1", "changed my mind")
	require.NoError(t, err)

	assert.Equal(t, 5, catalog.stock("p1"))
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, "buyer-1", *cancelled.CancelledBy)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "changed my mind", *cancelled.CancellationReason)
	assert.NotNil(t, cancelled.CancelledAt)

	assert.Eventually(t, func() bool {
		_, c := notifier.counts()
		return c == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCancelOrderIsNotRepeatable(t *testing.T) {
	catalog := newFakeCatalog(testProduct("p1", 1000, 5))
	ledger := newFakeLedger()
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 3},
	))
	require.NoError(t, err)

	_, err = svc.CancelOrder(context.Background(), order.ID, "buyer-1", "")
	require.NoError(t, err)
	require.Equal(t, 5, catalog.stock("p1"))

	_, err = svc.CancelOrder(context.Background(), order.ID, "buyer-1", "")
	assert.ErrorIs(t, err, models.ErrAlreadyCancelled)
	assert.Equal(t, 5, catalog.stock("p1"), "stock must not be restored twice")
}

func TestCancelDeliveredOrderFails(t *testing.T) {
	catalog := newFakeCatalog(testProduct("p1", 1000, 5))
	ledger := newFakeLedger()
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 3},
	))
	require.NoError(t, err)

	for _, status := range []models.OrderStatus{
		models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered,
	} {
		_, err = svc.AdvanceStatus(context.Background(), order.ID, status)
		require.NoError(t, err)
	}

	_, err = svc.CancelOrder(context.Background(), order.ID, "buyer-1", "")

	var terminal *models.TerminalStateError
	require.ErrorAs(t, err, &terminal)
	assert.Equal(t, models.OrderStatusDelivered, terminal.State)
	assert.Equal(t, 2, catalog.stock("p1"), "no stock change on failed cancel")
}

func TestCancelSkipsDeletedProducts(t *testing.T) {
	catalog := newFakeCatalog(
		testProduct("p1", 1000, 5),
		testProduct("p2", 500, 5),
	)
	ledger := newFakeLedger()
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 2},
		ItemRequest{ProductID: "p2", Quantity: 1},
	))
	require.NoError(t, err)

	catalog.remove("p2")

	cancelled, err := svc.CancelOrder(context.Background(), order.ID, "buyer-1", "")
	require.NoError(t, err, "a deleted product must not fail the cancellation")
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, catalog.stock("p1"))
}

func TestCancelRefundsPaidOrder(t *testing.T) {
	catalog := newFakeCatalog(testProduct("p1", 1000, 5))
	ledger := newFakeLedger()
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 1},
	))
	require.NoError(t, err)

	_, err = svc.UpdatePayment(context.Background(), order.ID, models.PaymentStatusPaid)
	require.NoError(t, err)

	cancelled, err := svc.CancelOrder(context.Background(), order.ID, "admin-1", "fraud check")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, cancelled.PaymentStatus)
}

func TestCancelUnknownOrder(t *testing.T) {
	svc := NewOrderService(newFakeCatalog(), newFakeLedger(), &fakeNotifier{}, nil)

	_, err := svc.CancelOrder(context.Background(), "missing", "buyer-1", "")

	var notFound *models.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "order", notFound.Entity)
}

func TestNotificationFailureDoesNotFailPlacement(t *testing.T) {
	catalog := newFakeCatalog(testProduct("p1", 1000, 5))
	ledger := newFakeLedger()
	notifier := &fakeNotifier{fail: true}
	svc := NewOrderService(catalog, ledger, notifier, nil)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 1, ledger.count())
}

func TestAdvanceStatus(t *testing.T) {
	catalog := newFakeCatalog(testProduct("p1", 1000, 5))
	ledger := newFakeLedger()
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 1},
	))
	require.NoError(t, err)

	// skipping a step is rejected
	_, err = svc.AdvanceStatus(context.Background(), order.ID, models.OrderStatusDelivered)
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)

	// cancellation does not go through status updates
	_, err = svc.AdvanceStatus(context.Background(), order.ID, models.OrderStatusCancelled)
	require.ErrorAs(t, err, &validation)

	updated, err := svc.AdvanceStatus(context.Background(), order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, updated.Status)

	updated, err = svc.AdvanceStatus(context.Background(), order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	assert.NotNil(t, updated.ShippedAt)

	updated, err = svc.AdvanceStatus(context.Background(), order.ID, models.OrderStatusDelivered)
	require.NoError(t, err)
	assert.NotNil(t, updated.DeliveredAt)

	// delivered is terminal
	_, err = svc.AdvanceStatus(context.Background(), order.ID, models.OrderStatusProcessing)
	var terminal *models.TerminalStateError
	require.ErrorAs(t, err, &terminal)
}

func TestUpdatePayment(t *testing.T) {
	catalog := newFakeCatalog(testProduct("p1", 1000, 5))
	ledger := newFakeLedger()
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 1},
	))
	require.NoError(t, err)

	// pending cannot jump straight to refunded
	_, err = svc.UpdatePayment(context.Background(), order.ID, models.PaymentStatusRefunded)
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)

	updated, err := svc.UpdatePayment(context.Background(), order.ID, models.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)

	updated, err = svc.UpdatePayment(context.Background(), order.ID, models.PaymentStatusRefunded)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, updated.PaymentStatus)
}

func TestUpdateTracking(t *testing.T) {
	catalog := newFakeCatalog(testProduct("p1", 1000, 5))
	ledger := newFakeLedger()
	svc := NewOrderService(catalog, ledger, &fakeNotifier{}, nil)

	order, err := svc.PlaceOrder(context.Background(), placeRequest(
		ItemRequest{ProductID: "p1", Quantity: 1},
	))
	require.NoError(t, err)

	carrier := "UPS"
	tracking := "1Z999"
	updated, err := svc.UpdateTracking(context.Background(), order.ID, models.TrackingUpdate{
		Carrier:        &carrier,
		TrackingNumber: &tracking,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Carrier)
	assert.Equal(t, "UPS", *updated.Carrier)

	_, err = svc.CancelOrder(context.Background(), order.ID, "buyer-1", "")
	require.NoError(t, err)

	_, err = svc.UpdateTracking(context.Background(), order.ID, models.TrackingUpdate{Carrier: &carrier})
	var terminal *models.TerminalStateError
	require.ErrorAs(t, err, &terminal)
}
