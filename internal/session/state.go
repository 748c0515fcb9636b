package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/shopkit/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopkit/pkg/errors"
	"github.com/angelmondragon/shopkit/pkg/logger"
	"github.com/angelmondragon/shopkit/pkg/models"
	"github.com/angelmondragon/shopkit/pkg/security"
)

var timeNowUTC = func() time.Time {
	return time.Now().UTC()
}

var validate = validator.New()

type userStore interface {
	FindUsersByEmail(ctx context.Context, email string) ([]models.User, error)
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	PatchUser(ctx context.Context, id string, patch map[string]any) (*models.User, error)
}

// Listener is notified with a snapshot of the session user after every
// change; nil means logged out.
type Listener func(user *models.User)

// Params groups dependencies for the session state.
type Params struct {
	Remote  userStore
	Storage Storage
	Logger  *logger.Logger
}

// State owns the cached authenticated user document and its persistence.
// It is the single source of truth the cart, wishlist, and order projections
// read from, and the only write path to durable local storage.
type State struct {
	remote  userStore
	storage Storage
	logger  *logger.Logger

	mu        sync.RWMutex
	user      *models.User
	listeners []Listener

	// writeMu serializes every remote write to the user document so that
	// concurrent cart/wishlist/profile patches cannot race each other into
	// a last-writer-wins overwrite.
	writeMu sync.Mutex
}

// New builds the session state with the required dependencies.
func New(params Params) (*State, error) {
	if params.Remote == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "remote store is required")
	}
	if params.Storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session storage is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &State{
		remote:  params.Remote,
		storage: params.Storage,
		logger:  params.Logger,
	}, nil
}

// OnChange registers a listener fired on login, register, restore, update,
// and logout. Listeners receive a deep copy and run on the mutating goroutine.
func (s *State) OnChange(fn func(user *models.User)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Current returns a snapshot of the session user, or nil when logged out.
func (s *State) Current() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.Clone()
}

// Restore loads the persisted session from local storage. Corrupt or absent
// data degrades to logged out; it never surfaces as an error.
func (s *State) Restore(ctx context.Context) error {
	data, err := s.storage.Load()
	if err != nil {
		s.logger.Warn(ctx, "session restore failed, starting logged out")
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil || user.ID == "" {
		s.logger.Warn(ctx, "persisted session is corrupt, clearing")
		if clearErr := s.storage.Clear(); clearErr != nil {
			s.logger.Error(ctx, "failed to clear corrupt session", clearErr)
		}
		return nil
	}

	s.setUser(ctx, &user, false)
	return nil
}

// Login matches the given credentials against the user collection. Exactly one
// matching document establishes the session; anything else is rejected.
func (s *State) Login(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCredentials, "email and password are required")
	}

	candidates, err := s.remote.FindUsersByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	var matched []models.User
	for _, candidate := range candidates {
		ok, verr := security.VerifyPassword(password, candidate.Password)
		if verr != nil {
			continue
		}
		if ok {
			matched = append(matched, candidate)
		}
	}
	if len(matched) != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCredentials, "invalid email or password")
	}

	user := matched[0]
	s.setUser(ctx, &user, true)
	return user.Clone(), nil
}

// RegisterInput carries the fields required to create an account.
type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Register creates a user with an empty cart and wishlist and establishes it
// as the session. The email must not already be registered.
func (s *State) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if err := validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid registration input")
	}

	existing, err := s.remote.FindUsersByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmailRegistered, "email already registered")
	}

	hash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	created, err := s.remote.CreateUser(ctx, models.User{
		Name:      input.Name,
		Email:     input.Email,
		Password:  hash,
		Role:      enums.UserRoleUser,
		Cart:      []models.CartLine{},
		Wishlist:  []models.Product{},
		CreatedAt: timeNowUTC(),
		Phone:     input.Phone,
		Address:   input.Address,
	})
	if err != nil {
		return nil, err
	}

	s.setUser(ctx, created, true)
	return created.Clone(), nil
}

// UpdateUserData sends a partial update for the session user and replaces the
// cached document with the store's merged echo. The server response is
// authoritative; there is no local merge. Writes are serialized so concurrent
// cart, wishlist, and profile patches apply in order.
func (s *State) UpdateUserData(ctx context.Context, patch map[string]any) (*models.User, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	var id string
	if s.user != nil {
		id = s.user.ID
	}
	s.mu.RUnlock()
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotAuthenticated, "no active session")
	}

	updated, err := s.remote.PatchUser(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.setUser(ctx, updated, true)
	return updated.Clone(), nil
}

// Logout clears the persisted session and the in-memory cache. It never fails;
// a storage hiccup is logged and the in-memory state still resets.
func (s *State) Logout(ctx context.Context) {
	if err := s.storage.Clear(); err != nil {
		s.logger.Error(ctx, "failed to clear persisted session", err)
	}
	s.mu.Lock()
	s.user = nil
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(nil)
	}
}

func (s *State) setUser(ctx context.Context, user *models.User, persist bool) {
	s.mu.Lock()
	s.user = user.Clone()
	listeners := append([]Listener(nil), s.listeners...)
	snapshot := s.user.Clone()
	s.mu.Unlock()

	if persist {
		data, err := json.Marshal(user)
		if err != nil {
			s.logger.Error(ctx, "failed to serialize session", err)
		} else if err := s.storage.Save(data); err != nil {
			s.logger.Error(ctx, "failed to persist session", err)
		}
	}

	for _, fn := range listeners {
		fn(snapshot.Clone())
	}
}
