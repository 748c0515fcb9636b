package wishlist

import (
	"context"
	"sync"

	pkgerrors "github.com/angelmondragon/shopkit/pkg/errors"
	"github.com/angelmondragon/shopkit/pkg/logger"
	"github.com/angelmondragon/shopkit/pkg/models"
)

type sessionState interface {
	Current() *models.User
	UpdateUserData(ctx context.Context, patch map[string]any) (*models.User, error)
	OnChange(fn func(user *models.User))
}

// Params groups dependencies for the wishlist engine.
type Params struct {
	Session sessionState
	Logger  *logger.Logger
}

// Engine maintains the session user's wishlist, an unordered set of product
// snapshots keyed by product id. Mutations apply locally first and then sync
// the whole list to the user document; a sync failure keeps the local change
// and is returned to the caller.
type Engine struct {
	session sessionState
	logger  *logger.Logger

	mu    sync.RWMutex
	items []models.Product
}

// New builds the wishlist engine and subscribes it to session changes.
func New(params Params) (*Engine, error) {
	if params.Session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session state is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}

	engine := &Engine{
		session: params.Session,
		logger:  params.Logger,
	}
	params.Session.OnChange(engine.onSessionChange)
	return engine, nil
}

func (e *Engine) onSessionChange(user *models.User) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if user == nil {
		e.items = nil
		return
	}
	e.items = models.CloneProducts(user.Wishlist)
}

// Items returns a snapshot of the wishlist contents.
func (e *Engine) Items() []models.Product {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.CloneProducts(e.items)
}

// Contains reports whether the product is wishlisted. Linear scan; wishlists
// are small.
func (e *Engine) Contains(productID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, item := range e.items {
		if item.ID == productID {
			return true
		}
	}
	return false
}

// Toggle flips the product's membership and reports whether it is present
// after the call.
func (e *Engine) Toggle(ctx context.Context, product models.Product) (bool, error) {
	if e.session.Current() == nil {
		return false, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to use the wishlist")
	}

	e.mu.Lock()
	present := false
	kept := e.items[:0]
	for _, item := range e.items {
		if item.ID == product.ID {
			present = true
			continue
		}
		kept = append(kept, item)
	}
	if present {
		e.items = kept
	} else {
		e.items = append(e.items, product)
	}
	nowPresent := !present
	snapshot := models.CloneProducts(e.items)
	e.mu.Unlock()

	return nowPresent, e.sync(ctx, snapshot)
}

// Remove drops the product from the wishlist; removing an absent product is a
// no-op.
func (e *Engine) Remove(ctx context.Context, productID string) error {
	if e.session.Current() == nil {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to use the wishlist")
	}

	e.mu.Lock()
	changed := false
	kept := e.items[:0]
	for _, item := range e.items {
		if item.ID == productID {
			changed = true
			continue
		}
		kept = append(kept, item)
	}
	e.items = kept
	snapshot := models.CloneProducts(e.items)
	e.mu.Unlock()

	if !changed {
		return nil
	}
	return e.sync(ctx, snapshot)
}

// Clear empties the wishlist.
func (e *Engine) Clear(ctx context.Context) error {
	if e.session.Current() == nil {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to use the wishlist")
	}

	e.mu.Lock()
	e.items = []models.Product{}
	e.mu.Unlock()

	return e.sync(ctx, []models.Product{})
}

func (e *Engine) sync(ctx context.Context, items []models.Product) error {
	updated, err := e.session.UpdateUserData(ctx, map[string]any{"wishlist": items})
	if err != nil {
		e.logger.Error(ctx, "wishlist sync failed, keeping local state", err)
		return err
	}
	e.mu.Lock()
	e.items = models.CloneProducts(updated.Wishlist)
	e.mu.Unlock()
	return nil
}
