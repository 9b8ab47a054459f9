package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishwas0229/riya-collections/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[int64]product.Product
	getErr error
}

func (m *mockProductRepo) GetByID(_ context.Context, id int64) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []int64) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]product.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	lastOrder     *Order
	createErr     error
	conflictsLeft int

	byID map[int64]*Order

	history []StatusHistory

	lastTransition TransitionRequest
	transitioned   *Order
	transitionErr  error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		return ErrNumberConflict
	}
	if m.createErr != nil {
		return m.createErr
	}
	o.ID = 1
	m.lastOrder = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id int64) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) History(_ context.Context, _ int64) ([]StatusHistory, error) {
	return m.history, nil
}

func (m *mockOrderRepo) Transition(_ context.Context, req TransitionRequest) (*Order, error) {
	m.lastTransition = req
	if m.transitionErr != nil {
		return nil, m.transitionErr
	}
	return m.transitioned, nil
}

type mockSequenceRepo struct {
	next int64
	err  error
}

func (m *mockSequenceRepo) Next(_ context.Context, _ string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.next++
	return m.next, nil
}

// --- Helpers ---

func newTestProduct(id int64, name, sku string, price string, stock int) product.Product {
	return product.Product{
		ID:    id,
		Name:  name,
		SKU:   sku,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[int64]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockProductRepo{byID: byID}
}

func testPricing() PricingConfig {
	return PricingConfig{
		Currency:    "INR",
		ShippingFee: decimal.RequireFromString("49.00"),
		TaxRate:     decimal.RequireFromString("0.05"),
	}
}

func newTestService(products *mockProductRepo, orders *mockOrderRepo) *Service {
	return NewService(products, orders, NewGenerator("RC", &mockSequenceRepo{}), testPricing(), nil)
}

// --- Create ---

func TestCreate_ValidationAccumulates(t *testing.T) {
	svc := newTestService(newProductRepo(), &mockOrderRepo{})

	_, err := svc.Create(context.Background(), CreateRequest{
		PaymentMethod: "bitcoin",
		Items:         []CreateItem{{ProductID: 0, Quantity: 0}},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	fields := make([]string, len(verr.Violations))
	for i, v := range verr.Violations {
		fields[i] = v.Field
	}
	assert.ElementsMatch(t, []string{
		"user_id", "payment_method", "items[0].product_id", "items[0].quantity",
	}, fields)
}

func TestCreate_EmptyItems(t *testing.T) {
	svc := newTestService(newProductRepo(), &mockOrderRepo{})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:        1,
		PaymentMethod: "cod",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 1)
	assert.Equal(t, "items", verr.Violations[0].Field)
}

func TestCreate_ProductNotFound(t *testing.T) {
	svc := newTestService(newProductRepo(), &mockOrderRepo{})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:        1,
		PaymentMethod: "cod",
		Items:         []CreateItem{{ProductID: 42, Quantity: 1}},
	})

	var pnf *ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, int64(42), pnf.ProductID)
}

func TestCreate_InsufficientStock(t *testing.T) {
	p1 := newTestProduct(1, "Silk Saree", "RC-SAREE-001", "4999.00", 2)
	svc := newTestService(newProductRepo(p1), &mockOrderRepo{})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:        1,
		PaymentMethod: "cod",
		Items:         []CreateItem{{ProductID: 1, Quantity: 5}},
	})

	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, int64(1), ise.ProductID)
	assert.Equal(t, 5, ise.Requested)
	assert.Equal(t, 2, ise.Available)
}

func TestCreate_PricesFromCatalog(t *testing.T) {
	p1 := newTestProduct(1, "Silk Saree", "RC-SAREE-001", "4999.00", 10)
	p2 := newTestProduct(2, "Jhumka Earrings", "RC-JWL-001", "449.00", 100)
	repo := &mockOrderRepo{}
	svc := newTestService(newProductRepo(p1, p2), repo)

	o, err := svc.Create(context.Background(), CreateRequest{
		UserID:        7,
		PaymentMethod: "gateway",
		Items: []CreateItem{
			// Client-supplied unit prices must be ignored.
			{ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("0.01")},
			{ProductID: 2, Quantity: 1, UnitPrice: decimal.RequireFromString("0.01")},
		},
	})
	require.NoError(t, err)

	// subtotal = 2*4999.00 + 449.00 = 10447.00
	assert.True(t, o.Subtotal.Equal(decimal.RequireFromString("10447.00")), "subtotal %s", o.Subtotal)
	// tax = 10447.00 * 0.05 = 522.35
	assert.True(t, o.Tax.Equal(decimal.RequireFromString("522.35")), "tax %s", o.Tax)
	// total = 10447.00 + 49.00 + 522.35
	assert.True(t, o.Total.Equal(decimal.RequireFromString("11018.35")), "total %s", o.Total)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, MethodGateway, o.PaymentMethod)
	assert.Equal(t, "INR", o.Currency)
	assert.True(t, o.StockReserved)

	require.Len(t, o.Items, 2)
	assert.Equal(t, "Silk Saree", o.Items[0].ProductName)
	assert.Equal(t, "RC-SAREE-001", o.Items[0].ProductSKU)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.RequireFromString("4999.00")))
	assert.Same(t, o, repo.lastOrder)
}

func TestCreate_RetriesOnNumberConflict(t *testing.T) {
	p1 := newTestProduct(1, "Silk Saree", "RC-SAREE-001", "4999.00", 10)
	repo := &mockOrderRepo{conflictsLeft: 2}
	svc := newTestService(newProductRepo(p1), repo)

	o, err := svc.Create(context.Background(), CreateRequest{
		UserID:        1,
		PaymentMethod: "cod",
		Items:         []CreateItem{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	// Two conflicts consumed, third generated number persisted.
	assert.Contains(t, o.Number, "0003")
}

func TestCreate_GivesUpAfterRepeatedConflicts(t *testing.T) {
	p1 := newTestProduct(1, "Silk Saree", "RC-SAREE-001", "4999.00", 10)
	repo := &mockOrderRepo{conflictsLeft: maxNumberAttempts}
	svc := newTestService(newProductRepo(p1), repo)

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:        1,
		PaymentMethod: "cod",
		Items:         []CreateItem{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrNumberConflict)
}

func TestCreate_StockRaceSurfacesFromRepository(t *testing.T) {
	// The pre-check passes but a concurrent order drains stock before the
	// repository's conditional decrement runs.
	p1 := newTestProduct(1, "Silk Saree", "RC-SAREE-001", "4999.00", 10)
	repo := &mockOrderRepo{createErr: &InsufficientStockError{ProductID: 1, Requested: 2, Available: 1}}
	svc := newTestService(newProductRepo(p1), repo)

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:        1,
		PaymentMethod: "cod",
		Items:         []CreateItem{{ProductID: 1, Quantity: 2}},
	})

	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 1, ise.Available)
}

func TestCreate_RepositoryError(t *testing.T) {
	p1 := newTestProduct(1, "Silk Saree", "RC-SAREE-001", "4999.00", 10)
	repo := &mockOrderRepo{createErr: errors.New("connection reset")}
	svc := newTestService(newProductRepo(p1), repo)

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:        1,
		PaymentMethod: "cod",
		Items:         []CreateItem{{ProductID: 1, Quantity: 1}},
	})
	require.Error(t, err)
}

func TestCreate_SettlementCheckRejectsBeforePersisting(t *testing.T) {
	p1 := newTestProduct(1, "Silk Saree", "RC-SAREE-001", "4999.00", 10)
	repo := &mockOrderRepo{}

	var checkedTotal decimal.Decimal
	check := func(method PaymentMethod, total decimal.Decimal) error {
		checkedTotal = total
		return errors.New("total not eligible")
	}
	svc := NewService(newProductRepo(p1), repo, NewGenerator("RC", &mockSequenceRepo{}), testPricing(), check)

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:        1,
		PaymentMethod: "cod",
		Items:         []CreateItem{{ProductID: 1, Quantity: 1}},
	})
	require.Error(t, err)

	// The check sees the priced total and the repository is never reached.
	// 4999.00 + 49.00 shipping + 249.95 tax.
	assert.True(t, checkedTotal.Equal(decimal.RequireFromString("5297.95")), "checked total %s", checkedTotal)
	assert.Nil(t, repo.lastOrder)
}

func TestRelease_CancelsAsSystemActor(t *testing.T) {
	repo := &mockOrderRepo{
		byID:         map[int64]*Order{5: {ID: 5, UserID: 7, Status: StatusPending}},
		transitioned: &Order{ID: 5, Status: StatusCancelled},
	}
	svc := newTestService(newProductRepo(), repo)

	o, err := svc.Release(context.Background(), 5, "settlement initiation failed")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, StatusCancelled, repo.lastTransition.Target)
	assert.Equal(t, "system:payment", repo.lastTransition.Actor)
}

// --- Get / History ---

func TestGet_OwnerSeesOrder(t *testing.T) {
	repo := &mockOrderRepo{byID: map[int64]*Order{5: {ID: 5, UserID: 7, Status: StatusPending}}}
	svc := newTestService(newProductRepo(), repo)

	o, err := svc.Get(context.Background(), 5, Actor{UserID: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(5), o.ID)
}

func TestGet_OtherUserReadsNotFound(t *testing.T) {
	repo := &mockOrderRepo{byID: map[int64]*Order{5: {ID: 5, UserID: 7}}}
	svc := newTestService(newProductRepo(), repo)

	_, err := svc.Get(context.Background(), 5, Actor{UserID: 8})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGet_StaffSeesAnyOrder(t *testing.T) {
	repo := &mockOrderRepo{byID: map[int64]*Order{5: {ID: 5, UserID: 7}}}
	svc := newTestService(newProductRepo(), repo)

	o, err := svc.Get(context.Background(), 5, Actor{UserID: 99, Staff: true})
	require.NoError(t, err)
	assert.Equal(t, int64(7), o.UserID)
}

func TestHistory_VisibilityFollowsGet(t *testing.T) {
	repo := &mockOrderRepo{
		byID:    map[int64]*Order{5: {ID: 5, UserID: 7}},
		history: []StatusHistory{{OrderID: 5, To: StatusPending, Note: "order created"}},
	}
	svc := newTestService(newProductRepo(), repo)

	h, err := svc.History(context.Background(), 5, Actor{UserID: 7})
	require.NoError(t, err)
	require.Len(t, h, 1)

	_, err = svc.History(context.Background(), 5, Actor{UserID: 8})
	require.ErrorIs(t, err, ErrNotFound)
}

// --- Transition ---

func TestTransition_StaffMayConfirm(t *testing.T) {
	repo := &mockOrderRepo{
		byID:         map[int64]*Order{5: {ID: 5, UserID: 7, Status: StatusPending}},
		transitioned: &Order{ID: 5, Status: StatusConfirmed},
	}
	svc := newTestService(newProductRepo(), repo)

	o, err := svc.Transition(context.Background(), 5, StatusConfirmed, "payment received", Actor{UserID: 99, Staff: true})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, o.Status)
	assert.Equal(t, "staff:99", repo.lastTransition.Actor)
}

func TestTransition_CustomerMayCancelOwnOrder(t *testing.T) {
	repo := &mockOrderRepo{
		byID:         map[int64]*Order{5: {ID: 5, UserID: 7, Status: StatusPending}},
		transitioned: &Order{ID: 5, Status: StatusCancelled},
	}
	svc := newTestService(newProductRepo(), repo)

	o, err := svc.Transition(context.Background(), 5, StatusCancelled, "changed my mind", Actor{UserID: 7})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, "user:7", repo.lastTransition.Actor)
}

func TestTransition_CustomerMayNotShip(t *testing.T) {
	repo := &mockOrderRepo{byID: map[int64]*Order{5: {ID: 5, UserID: 7, Status: StatusConfirmed}}}
	svc := newTestService(newProductRepo(), repo)

	_, err := svc.Transition(context.Background(), 5, StatusShipped, "", Actor{UserID: 7})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestTransition_CustomerCannotTouchOthersOrder(t *testing.T) {
	repo := &mockOrderRepo{byID: map[int64]*Order{5: {ID: 5, UserID: 7, Status: StatusPending}}}
	svc := newTestService(newProductRepo(), repo)

	_, err := svc.Transition(context.Background(), 5, StatusCancelled, "", Actor{UserID: 8})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTransition_IllegalTransitionSurfaces(t *testing.T) {
	repo := &mockOrderRepo{
		byID:          map[int64]*Order{5: {ID: 5, UserID: 7, Status: StatusDelivered}},
		transitionErr: &InvalidTransitionError{From: StatusDelivered, To: StatusPending},
	}
	svc := newTestService(newProductRepo(), repo)

	_, err := svc.Transition(context.Background(), 5, StatusPending, "", Actor{Staff: true})

	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, StatusDelivered, ite.From)
}
