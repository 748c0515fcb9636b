package models

import (
	"time"

	"github.com/angelmondragon/shopkit/pkg/enums"
)

// User is the remote store's user document. The cart and wishlist live as
// sub-documents and are replaced wholesale on every mutation; there is no
// partial update server-side beyond the flat field merge PATCH performs.
type User struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Password  string         `json:"password"` // bcrypt hash, never plaintext
	Role      enums.UserRole `json:"role"`
	Cart      []CartLine     `json:"cart"`
	Wishlist  []Product      `json:"wishlist"`
	CreatedAt time.Time      `json:"createdAt"`
	Phone     string         `json:"phone,omitempty"`
	Address   string         `json:"address,omitempty"`
}

// Clone returns a deep copy so callers can hand out session snapshots
// without exposing the cached document to mutation.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Cart = CloneLines(u.Cart)
	out.Wishlist = CloneProducts(u.Wishlist)
	return &out
}
