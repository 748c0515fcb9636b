package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopkit/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopkit/pkg/errors"
	"github.com/angelmondragon/shopkit/pkg/logger"
	"github.com/angelmondragon/shopkit/pkg/models"
)

type fakeSession struct {
	user      *models.User
	listeners []func(*models.User)
}

func (f *fakeSession) Current() *models.User {
	return f.user.Clone()
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

type fakeOrderStore struct {
	orders    []models.Order
	listErr   error
	patchErr  error
	deleteErr error
}

func (f *fakeOrderStore) ListOrdersByUser(_ context.Context, userID string) ([]models.Order, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o.Clone())
		}
	}
	return out, nil
}

func (f *fakeOrderStore) PatchOrder(_ context.Context, id string, patch map[string]any) (*models.Order, error) {
	if f.patchErr != nil {
		return nil, f.patchErr
	}
	for i := range f.orders {
		if f.orders[i].ID == id {
			if status, ok := patch["status"].(enums.OrderStatus); ok {
				f.orders[i].Status = status
			}
			return f.orders[i].Clone(), nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (f *fakeOrderStore) DeleteOrder(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i := range f.orders {
		if f.orders[i].ID == id {
			f.orders = append(f.orders[:i], f.orders[i+1:]...)
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func order(id, userID string, day int, status enums.OrderStatus) models.Order {
	return models.Order{
		ID:     id,
		UserID: userID,
		Date:   time.Date(2024, time.March, day, 12, 0, 0, 0, time.UTC),
		Total:  decimal.RequireFromString("100"),
		Status: status,
	}
}

func testLedger(t *testing.T, store *fakeOrderStore) (*Ledger, *fakeSession) {
	t.Helper()
	sess := &fakeSession{}
	ledger, err := New(Params{
		Session: sess,
		Remote:  store,
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sess.emit(&models.User{ID: "u1"})
	return ledger, sess
}

func TestLoadSortsNewestFirst(t *testing.T) {
	store := &fakeOrderStore{orders: []models.Order{
		order("o1", "u1", 1, enums.OrderStatusCompleted),
		order("o3", "u1", 20, enums.OrderStatusProcessing),
		order("o2", "u1", 10, enums.OrderStatusProcessing),
		order("ox", "u2", 15, enums.OrderStatusProcessing),
	}}
	ledger, _ := testLedger(t, store)

	if err := ledger.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := ledger.Orders()
	if len(got) != 3 {
		t.Fatalf("expected only u1's orders, got %+v", got)
	}
	if got[0].ID != "o3" || got[1].ID != "o2" || got[2].ID != "o1" {
		t.Fatalf("orders not newest first: %v %v %v", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestLoadRequiresSession(t *testing.T) {
	ledger, sess := testLedger(t, &fakeOrderStore{})
	sess.emit(nil)

	if err := ledger.Load(context.Background()); !pkgerrors.HasCode(err, pkgerrors.CodeNotAuthenticated) {
		t.Fatalf("expected NOT_AUTHENTICATED, got %v", err)
	}
}

func TestLoadFailureKeepsStaleList(t *testing.T) {
	store := &fakeOrderStore{orders: []models.Order{order("o1", "u1", 1, enums.OrderStatusProcessing)}}
	ledger, _ := testLedger(t, store)

	if err := ledger.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	store.listErr = pkgerrors.New(pkgerrors.CodeRemote, "store down")
	err := ledger.Load(context.Background())
	if !pkgerrors.HasCode(err, pkgerrors.CodeOrdersLoad) {
		t.Fatalf("expected ORDERS_LOAD, got %v", err)
	}
	if got := ledger.Orders(); len(got) != 1 || got[0].ID != "o1" {
		t.Fatalf("failed load must keep the stale list, got %+v", got)
	}
}

func TestRecordPrepends(t *testing.T) {
	store := &fakeOrderStore{orders: []models.Order{order("o1", "u1", 1, enums.OrderStatusCompleted)}}
	ledger, _ := testLedger(t, store)

	if err := ledger.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	ledger.Record(order("o2", "u1", 2, enums.OrderStatusProcessing))

	got := ledger.Orders()
	if len(got) != 2 || got[0].ID != "o2" {
		t.Fatalf("recorded order must lead the list, got %+v", got)
	}
}

func TestCancelTransitionsOrder(t *testing.T) {
	store := &fakeOrderStore{orders: []models.Order{order("o1", "u1", 1, enums.OrderStatusProcessing)}}
	ledger, _ := testLedger(t, store)

	if err := ledger.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := ledger.Cancel(context.Background(), "o1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if got := ledger.Orders(); got[0].Status != enums.OrderStatusCancelled {
		t.Fatalf("cancellation not mirrored locally: %+v", got[0])
	}
	if store.orders[0].Status != enums.OrderStatusCancelled {
		t.Fatalf("cancellation not persisted: %+v", store.orders[0])
	}
}

func TestCancelWorksBeforeFirstLoad(t *testing.T) {
	store := &fakeOrderStore{orders: []models.Order{order("o1", "u1", 1, enums.OrderStatusProcessing)}}
	ledger, _ := testLedger(t, store)

	// No Load; the order exists only at the store.
	if err := ledger.Cancel(context.Background(), "o1"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if store.orders[0].Status != enums.OrderStatusCancelled {
		t.Fatalf("cancellation not persisted: %+v", store.orders[0])
	}
}

func TestCancelRejectsTerminalOrders(t *testing.T) {
	store := &fakeOrderStore{orders: []models.Order{
		order("o1", "u1", 1, enums.OrderStatusCompleted),
		order("o2", "u1", 2, enums.OrderStatusCancelled),
	}}
	ledger, _ := testLedger(t, store)

	if err := ledger.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, id := range []string{"o1", "o2"} {
		if err := ledger.Cancel(context.Background(), id); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected VALIDATION cancelling %s, got %v", id, err)
		}
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	ledger, _ := testLedger(t, &fakeOrderStore{})

	if err := ledger.Cancel(context.Background(), "ghost"); !pkgerrors.HasCode(err, pkgerrors.CodeOrderNotFound) {
		t.Fatalf("expected ORDER_NOT_FOUND, got %v", err)
	}
}

func TestRemoveDeletesAtStoreAndLocally(t *testing.T) {
	store := &fakeOrderStore{orders: []models.Order{
		order("o1", "u1", 1, enums.OrderStatusCancelled),
		order("o2", "u1", 2, enums.OrderStatusProcessing),
	}}
	ledger, _ := testLedger(t, store)

	if err := ledger.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := ledger.Remove(context.Background(), "o1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if got := ledger.Orders(); len(got) != 1 || got[0].ID != "o2" {
		t.Fatalf("order not dropped locally: %+v", got)
	}
	if len(store.orders) != 1 {
		t.Fatalf("order not deleted at the store: %+v", store.orders)
	}
}

func TestRemoveUnknownOrderMapsCode(t *testing.T) {
	ledger, _ := testLedger(t, &fakeOrderStore{})

	if err := ledger.Remove(context.Background(), "ghost"); !pkgerrors.HasCode(err, pkgerrors.CodeOrderNotFound) {
		t.Fatalf("expected ORDER_NOT_FOUND, got %v", err)
	}
}

func TestIdentityChangeDropsCache(t *testing.T) {
	store := &fakeOrderStore{orders: []models.Order{order("o1", "u1", 1, enums.OrderStatusProcessing)}}
	ledger, sess := testLedger(t, store)

	if err := ledger.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	sess.emit(&models.User{ID: "u2"})
	if got := ledger.Orders(); len(got) != 0 {
		t.Fatalf("identity change must drop the cached history, got %+v", got)
	}

	sess.emit(nil)
	if got := ledger.Orders(); len(got) != 0 {
		t.Fatalf("logout must drop the cached history")
	}
}
