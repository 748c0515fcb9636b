package cart

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopkit/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopkit/pkg/errors"
	"github.com/angelmondragon/shopkit/pkg/logger"
	"github.com/angelmondragon/shopkit/pkg/models"
	"github.com/angelmondragon/shopkit/pkg/types"
)

func shippingAddress() types.Address {
	return types.Address{Line1: "1 Main St", City: "Pune", State: "MH", PostalCode: "411001"}
}

type fakeSession struct {
	user      *models.User
	patchErr  error
	lastPatch map[string]any
	listeners []func(*models.User)
}

func (f *fakeSession) Current() *models.User {
	return f.user.Clone()
}

func (f *fakeSession) UpdateUserData(_ context.Context, patch map[string]any) (*models.User, error) {
	if f.patchErr != nil {
		return nil, f.patchErr
	}
	f.lastPatch = patch
	if lines, ok := patch["cart"].([]models.CartLine); ok {
		f.user.Cart = models.CloneLines(lines)
	}
	echo := f.user.Clone()
	for _, fn := range f.listeners {
		fn(echo.Clone())
	}
	return echo, nil
}

func (f *fakeSession) OnChange(fn func(user *models.User)) {
	f.listeners = append(f.listeners, fn)
}

func (f *fakeSession) emit(user *models.User) {
	f.user = user.Clone()
	for _, fn := range f.listeners {
		fn(user.Clone())
	}
}

type fakeOrderCreator struct {
	created   []models.Order
	createErr error
}

func (f *fakeOrderCreator) CreateOrder(_ context.Context, order models.Order) (*models.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	order.ID = "o1"
	f.created = append(f.created, order)
	return order.Clone(), nil
}

type fakeLedger struct {
	recorded []models.Order
}

func (f *fakeLedger) Record(order models.Order) {
	f.recorded = append(f.recorded, order)
}

func product(id, price string) models.Product {
	return models.Product{ID: id, Name: "P " + id, Price: decimal.RequireFromString(price), IsActive: true}
}

func testEngine(t *testing.T) (*Engine, *fakeSession, *fakeOrderCreator, *fakeLedger) {
	t.Helper()
	sess := &fakeSession{}
	creator := &fakeOrderCreator{}
	ledger := &fakeLedger{}
	engine, err := New(Params{
		Session: sess,
		Remote:  creator,
		Ledger:  ledger,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sess.emit(&models.User{ID: "u1", Cart: []models.CartLine{}})
	return engine, sess, creator, ledger
}

func TestAddRequiresSession(t *testing.T) {
	engine, sess, _, _ := testEngine(t)
	sess.emit(nil)
	sess.user = nil

	err := engine.Add(context.Background(), product("p1", "10"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotAuthenticated) {
		t.Fatalf("expected NOT_AUTHENTICATED, got %v", err)
	}
}

func TestAddIncrementsExistingLine(t *testing.T) {
	engine, sess, _, _ := testEngine(t)

	if err := engine.Add(context.Background(), product("p1", "100")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := engine.Add(context.Background(), product("p1", "100")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	lines := engine.Lines()
	if len(lines) != 1 || lines[0].Quantity != 2 {
		t.Fatalf("expected one line with quantity 2, got %+v", lines)
	}
	if sess.lastPatch == nil {
		t.Fatalf("cart was not synced to the user document")
	}
}

func TestAddEnforcesQuantityCap(t *testing.T) {
	engine, _, _, _ := testEngine(t)

	for i := 0; i < 5; i++ {
		if err := engine.Add(context.Background(), product("p1", "100")); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}
	err := engine.Add(context.Background(), product("p1", "100"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeQuantityLimit) {
		t.Fatalf("expected QUANTITY_LIMIT, got %v", err)
	}
	if lines := engine.Lines(); lines[0].Quantity != 5 {
		t.Fatalf("rejected add must leave the cart unchanged, got %+v", lines)
	}
}

func TestRemoveAbsentProductIsNoOp(t *testing.T) {
	engine, sess, _, _ := testEngine(t)

	if err := engine.Add(context.Background(), product("p1", "100")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	sess.lastPatch = nil

	if err := engine.Remove(context.Background(), "ghost"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if sess.lastPatch != nil {
		t.Fatalf("no-op removal must not sync")
	}
	if len(engine.Lines()) != 1 {
		t.Fatalf("cart changed on no-op removal")
	}
}

func TestRemoveDropsLine(t *testing.T) {
	engine, _, _, _ := testEngine(t)

	if err := engine.Add(context.Background(), product("p1", "100")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := engine.Remove(context.Background(), "p1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(engine.Lines()) != 0 {
		t.Fatalf("line not removed")
	}
}

func TestUpdateQuantityBounds(t *testing.T) {
	engine, _, _, _ := testEngine(t)

	if err := engine.Add(context.Background(), product("p1", "100")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := engine.UpdateQuantity(context.Background(), "p1", 0); err != nil {
		t.Fatalf("quantity below one must be ignored, got %v", err)
	}
	if lines := engine.Lines(); lines[0].Quantity != 1 {
		t.Fatalf("quantity changed on ignored update: %+v", lines)
	}

	if err := engine.UpdateQuantity(context.Background(), "p1", 6); !pkgerrors.HasCode(err, pkgerrors.CodeQuantityLimit) {
		t.Fatalf("expected QUANTITY_LIMIT, got %v", err)
	}

	if err := engine.UpdateQuantity(context.Background(), "p1", 4); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
	if lines := engine.Lines(); lines[0].Quantity != 4 {
		t.Fatalf("quantity not applied: %+v", lines)
	}
}

func TestTotalPriceRecomputesFromLines(t *testing.T) {
	engine, _, _, _ := testEngine(t)

	if err := engine.Add(context.Background(), product("p1", "499.50")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := engine.Add(context.Background(), product("p2", "200")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := engine.UpdateQuantity(context.Background(), "p1", 2); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}

	want := decimal.RequireFromString("1199.00")
	if got := engine.TotalPrice(); !got.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, got)
	}
}

func TestSyncFailurePropagatesButKeepsLocalState(t *testing.T) {
	engine, sess, _, _ := testEngine(t)
	sess.patchErr = pkgerrors.New(pkgerrors.CodeRemote, "store down")

	err := engine.Add(context.Background(), product("p1", "100"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeRemote) {
		t.Fatalf("sync failure must surface to the caller, got %v", err)
	}
	if lines := engine.Lines(); len(lines) != 1 {
		t.Fatalf("optimistic local state lost: %+v", lines)
	}

	sess.patchErr = nil
	if err := engine.Add(context.Background(), product("p1", "100")); err != nil {
		t.Fatalf("Add after recovery: %v", err)
	}
	if lines := engine.Lines(); lines[0].Quantity != 2 {
		t.Fatalf("local state should carry across the failed sync: %+v", lines)
	}
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	engine, _, _, _ := testEngine(t)

	_, err := engine.Checkout(context.Background(), CheckoutInput{PaymentMethod: enums.PaymentMethodCOD, ShippingAddress: shippingAddress()})
	if !pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected EMPTY_CART, got %v", err)
	}
}

func TestCheckoutSnapshotsCartIntoOrder(t *testing.T) {
	engine, _, creator, ledger := testEngine(t)

	if err := engine.Add(context.Background(), product("p1", "500")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := engine.Add(context.Background(), product("p1", "500")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := engine.Add(context.Background(), product("p2", "200")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	order, err := engine.Checkout(context.Background(), CheckoutInput{PaymentMethod: enums.PaymentMethodCard, ShippingAddress: shippingAddress()})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if !order.Total.Equal(decimal.RequireFromString("1200")) {
		t.Fatalf("expected total 1200, got %s", order.Total)
	}
	if order.Status != enums.OrderStatusProcessing {
		t.Fatalf("expected processing status, got %s", order.Status)
	}
	if order.UserID != "u1" {
		t.Fatalf("order not attributed to session user: %+v", order)
	}
	if len(creator.created) != 1 {
		t.Fatalf("order not sent to the store")
	}
	if len(ledger.recorded) != 1 || ledger.recorded[0].ID != "o1" {
		t.Fatalf("order not recorded in the ledger: %+v", ledger.recorded)
	}
	if len(engine.Lines()) != 0 {
		t.Fatalf("checkout must empty the cart")
	}
}

func TestCheckoutFailureLeavesCartIntact(t *testing.T) {
	engine, _, creator, ledger := testEngine(t)
	creator.createErr = pkgerrors.New(pkgerrors.CodeRemote, "store down")

	if err := engine.Add(context.Background(), product("p1", "500")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	_, err := engine.Checkout(context.Background(), CheckoutInput{PaymentMethod: enums.PaymentMethodUPI, ShippingAddress: shippingAddress()})
	if !pkgerrors.HasCode(err, pkgerrors.CodeRemote) {
		t.Fatalf("expected REMOTE error, got %v", err)
	}
	if len(engine.Lines()) != 1 {
		t.Fatalf("failed checkout must leave the cart untouched")
	}
	if len(ledger.recorded) != 0 {
		t.Fatalf("failed checkout must not record an order")
	}
}

func TestLogoutResetsCart(t *testing.T) {
	engine, sess, _, _ := testEngine(t)

	if err := engine.Add(context.Background(), product("p1", "100")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	sess.emit(nil)
	if len(engine.Lines()) != 0 {
		t.Fatalf("logout must reset the cart")
	}
}
