package orders

import (
	"context"
	"sort"
	"sync"

	"github.com/angelmondragon/shopkit/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopkit/pkg/errors"
	"github.com/angelmondragon/shopkit/pkg/logger"
	"github.com/angelmondragon/shopkit/pkg/models"
)

type orderStore interface {
	ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)
	PatchOrder(ctx context.Context, id string, patch map[string]any) (*models.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

type sessionState interface {
	Current() *models.User
	OnChange(fn func(user *models.User))
}

// Params groups dependencies for the order ledger.
type Params struct {
	Session sessionState
	Remote  orderStore
	Logger  *logger.Logger
}

// Ledger is the in-memory projection of the session user's order history,
// newest first. It is read-through on demand, not kept live; callers decide
// when a refresh is worth a store round trip.
type Ledger struct {
	session sessionState
	remote  orderStore
	logger  *logger.Logger

	mu     sync.RWMutex
	orders []models.Order
	userID string
}

// New builds the order ledger and subscribes it to session changes. An
// identity change drops the cached history; orders are not fetched eagerly.
func New(params Params) (*Ledger, error) {
	if params.Session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session state is required")
	}
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "remote store is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}

	ledger := &Ledger{
		session: params.Session,
		remote:  params.Remote,
		logger:  params.Logger,
	}
	params.Session.OnChange(ledger.onSessionChange)
	return ledger, nil
}

func (l *Ledger) onSessionChange(user *models.User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if user == nil {
		l.orders = nil
		l.userID = ""
		return
	}
	if user.ID != l.userID {
		l.orders = nil
		l.userID = user.ID
	}
}

// Load replaces the cached history with the store's current view, newest
// first. On failure the stale list stands and the error carries ORDERS_LOAD.
func (l *Ledger) Load(ctx context.Context) error {
	user := l.session.Current()
	if user == nil {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to view orders")
	}

	fetched, err := l.remote.ListOrdersByUser(ctx, user.ID)
	if err != nil {
		l.logger.Error(ctx, "order history load failed, keeping cached list", err)
		return pkgerrors.Wrap(pkgerrors.CodeOrdersLoad, err, "load order history")
	}

	sort.SliceStable(fetched, func(i, j int) bool {
		return fetched[i].Date.After(fetched[j].Date)
	})

	l.mu.Lock()
	l.orders = fetched
	l.userID = user.ID
	l.mu.Unlock()
	return nil
}

// Orders returns a snapshot of the cached history, newest first.
func (l *Ledger) Orders() []models.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Order, len(l.orders))
	for i := range l.orders {
		out[i] = *l.orders[i].Clone()
	}
	return out
}

// Record prepends a freshly placed order so it shows up without a reload.
func (l *Ledger) Record(order models.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = append([]models.Order{order}, l.orders...)
}

// Cancel transitions the order to cancelled at the store and mirrors the
// result locally. When the cache already holds the order, terminal statuses
// are rejected before any round trip; existence is otherwise the store's
// call, so cancelling works even before the first Load.
func (l *Ledger) Cancel(ctx context.Context, orderID string) error {
	l.mu.RLock()
	for i := range l.orders {
		if l.orders[i].ID != orderID {
			continue
		}
		if l.orders[i].Status.IsTerminal() {
			status := l.orders[i].Status
			l.mu.RUnlock()
			return pkgerrors.New(pkgerrors.CodeValidation, "cannot cancel a "+status.String()+" order")
		}
		break
	}
	l.mu.RUnlock()

	updated, err := l.remote.PatchOrder(ctx, orderID, map[string]any{
		"status": enums.OrderStatusCancelled,
	})
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeOrderNotFound, err, "order not found")
		}
		return err
	}

	l.mu.Lock()
	for i := range l.orders {
		if l.orders[i].ID == orderID {
			l.orders[i] = *updated.Clone()
			break
		}
	}
	l.mu.Unlock()
	return nil
}

// Remove hard-deletes the order at the store and drops it from the cache.
// There is no soft delete in the document store.
func (l *Ledger) Remove(ctx context.Context, orderID string) error {
	if err := l.remote.DeleteOrder(ctx, orderID); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeOrderNotFound, err, "order not found")
		}
		return err
	}

	l.mu.Lock()
	kept := l.orders[:0]
	for _, order := range l.orders {
		if order.ID == orderID {
			continue
		}
		kept = append(kept, order)
	}
	l.orders = kept
	l.mu.Unlock()
	return nil
}
