package cart

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shopkit/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopkit/pkg/errors"
	"github.com/angelmondragon/shopkit/pkg/logger"
	"github.com/angelmondragon/shopkit/pkg/models"
	"github.com/angelmondragon/shopkit/pkg/types"
)

type sessionState interface {
	Current() *models.User
	UpdateUserData(ctx context.Context, patch map[string]any) (*models.User, error)
	OnChange(fn func(user *models.User))
}

type orderCreator interface {
	CreateOrder(ctx context.Context, order models.Order) (*models.Order, error)
}

type orderRecorder interface {
	Record(order models.Order)
}

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

// Params groups dependencies for the cart engine.
type Params struct {
	Session sessionState
	Remote  orderCreator
	Ledger  orderRecorder
	Logger  *logger.Logger
	// MaxQuantity caps how many units of one product a cart line may hold.
	// Zero means the default of 5.
	MaxQuantity int
}

// Engine maintains the session user's cart lines. Every mutation applies
// locally first and then syncs the whole cart to the remote document; a sync
// failure keeps the local change so the user never watches their edit vanish,
// but the failure is still returned to the caller.
type Engine struct {
	session sessionState
	remote  orderCreator
	ledger  orderRecorder
	logger  *logger.Logger
	maxQty  int

	mu    sync.RWMutex
	lines []models.CartLine
}

// New builds the cart engine and subscribes it to session changes. Login and
// restore seed the cart from the user document; logout resets it.
func New(params Params) (*Engine, error) {
	if params.Session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session state is required")
	}
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "remote store is required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order ledger is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	maxQty := params.MaxQuantity
	if maxQty <= 0 {
		maxQty = 5
	}

	engine := &Engine{
		session: params.Session,
		remote:  params.Remote,
		ledger:  params.Ledger,
		logger:  params.Logger,
		maxQty:  maxQty,
	}
	params.Session.OnChange(engine.onSessionChange)
	return engine, nil
}

func (e *Engine) onSessionChange(user *models.User) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if user == nil {
		e.lines = nil
		return
	}
	e.lines = models.CloneLines(user.Cart)
}

// Lines returns a snapshot of the current cart contents.
func (e *Engine) Lines() []models.CartLine {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.CloneLines(e.lines)
}

// TotalPrice recomputes the cart total from its lines on every call. Totals
// are never cached and never drift from the line contents.
func (e *Engine) TotalPrice() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	total := decimal.Zero
	for _, line := range e.lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// Add puts one unit of the product in the cart, incrementing the quantity when
// a line for it already exists. Exceeding the per-line cap rejects the add and
// leaves the cart untouched.
func (e *Engine) Add(ctx context.Context, product models.Product) error {
	if e.session.Current() == nil {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to add items to the cart")
	}

	e.mu.Lock()
	found := false
	for i := range e.lines {
		if e.lines[i].Product.ID == product.ID {
			if e.lines[i].Quantity+1 > e.maxQty {
				e.mu.Unlock()
				return pkgerrors.New(pkgerrors.CodeQuantityLimit,
					fmt.Sprintf("at most %d units of one product", e.maxQty))
			}
			e.lines[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		e.lines = append(e.lines, models.CartLine{Product: product, Quantity: 1})
	}
	snapshot := models.CloneLines(e.lines)
	e.mu.Unlock()

	return e.sync(ctx, snapshot)
}

// Remove drops the product's line entirely. Removing an absent product is a
// no-op.
func (e *Engine) Remove(ctx context.Context, productID string) error {
	if e.session.Current() == nil {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to modify the cart")
	}

	e.mu.Lock()
	changed := false
	kept := e.lines[:0]
	for _, line := range e.lines {
		if line.Product.ID == productID {
			changed = true
			continue
		}
		kept = append(kept, line)
	}
	e.lines = kept
	snapshot := models.CloneLines(e.lines)
	e.mu.Unlock()

	if !changed {
		return nil
	}
	return e.sync(ctx, snapshot)
}

// UpdateQuantity sets the line's quantity directly. Quantities below one are
// ignored rather than treated as removal; quantities above the cap are
// rejected.
func (e *Engine) UpdateQuantity(ctx context.Context, productID string, quantity int) error {
	if e.session.Current() == nil {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to modify the cart")
	}
	if quantity < 1 {
		return nil
	}
	if quantity > e.maxQty {
		return pkgerrors.New(pkgerrors.CodeQuantityLimit,
			fmt.Sprintf("at most %d units of one product", e.maxQty))
	}

	e.mu.Lock()
	changed := false
	for i := range e.lines {
		if e.lines[i].Product.ID == productID {
			changed = e.lines[i].Quantity != quantity
			e.lines[i].Quantity = quantity
			break
		}
	}
	snapshot := models.CloneLines(e.lines)
	e.mu.Unlock()

	if !changed {
		return nil
	}
	return e.sync(ctx, snapshot)
}

// Clear empties the cart.
func (e *Engine) Clear(ctx context.Context) error {
	if e.session.Current() == nil {
		return pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to modify the cart")
	}

	e.mu.Lock()
	e.lines = []models.CartLine{}
	e.mu.Unlock()

	return e.sync(ctx, []models.CartLine{})
}

// CheckoutInput carries the payment and shipping details for order placement.
type CheckoutInput struct {
	PaymentMethod   enums.PaymentMethod
	PaymentDetails  string
	ShippingAddress types.Address
}

// Checkout snapshots the cart into a new order, records it in the ledger, and
// empties the cart. The total is computed at call time from the snapshot. A
// failed order creation leaves the cart exactly as it was.
func (e *Engine) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	user := e.session.Current()
	if user == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "sign in to check out")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	e.mu.RLock()
	items := models.CloneLines(e.lines)
	e.mu.RUnlock()
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	total := decimal.Zero
	for _, line := range items {
		total = total.Add(line.LineTotal())
	}

	created, err := e.remote.CreateOrder(ctx, models.Order{
		UserID:          user.ID,
		Date:            timeNowUTC(),
		Items:           items,
		Total:           total,
		Status:          enums.OrderStatusProcessing,
		PaymentMethod:   input.PaymentMethod,
		PaymentDetails:  input.PaymentDetails,
		ShippingAddress: input.ShippingAddress,
	})
	if err != nil {
		return nil, err
	}

	e.ledger.Record(*created)

	e.mu.Lock()
	e.lines = []models.CartLine{}
	e.mu.Unlock()
	// The order exists either way; a failed cart-clear sync must not read as a
	// failed checkout.
	if err := e.sync(ctx, []models.CartLine{}); err != nil {
		e.logger.Error(ctx, "cart clear sync failed after checkout", err)
	}

	return created.Clone(), nil
}

// sync pushes the whole cart to the user document. The remote echo is
// authoritative on success; on failure the optimistic local state stands and
// the error surfaces to the caller.
func (e *Engine) sync(ctx context.Context, lines []models.CartLine) error {
	updated, err := e.session.UpdateUserData(ctx, map[string]any{"cart": lines})
	if err != nil {
		e.logger.Error(ctx, "cart sync failed, keeping local state", err)
		return err
	}
	e.mu.Lock()
	e.lines = models.CloneLines(updated.Cart)
	e.mu.Unlock()
	return nil
}
