package rxkart

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jinzhu/copier"
)

// Session is the explicit session context for all data access. It is
// constructed by Login, persisted to the local cache so a new process
// can resume it, and invalidated by Logout. Nothing reads session
// state ambiently; services go through the client's current session.
type Session struct {
	Token           string    `json:"token"`
	UserID          string    `json:"userId"`
	Role            Role      `json:"role"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Region          string    `json:"region,omitempty"`
	ShippingAddress *Address  `json:"shippingAddress,omitempty"`
	LoggedInAt      time.Time `json:"loggedInAt"`
}

// Clone returns a deep copy so callers can hold the session without
// sharing state with the client.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	var cp Session
	if err := copier.CopyWithOption(&cp, s, copier.Option{DeepCopy: true}); err != nil {
		panic("could not copy session: " + err.Error())
	}

	return &cp
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token           string   `json:"token"`
	User            User     `json:"user"`
	ShippingAddress *Address `json:"shippingAddress,omitempty"`
}

// Login authenticates against the backend and installs the resulting
// session. The previous session, if any, is replaced.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp loginResponse
	if err := c.api.Post(ctx, "/login", credentials{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}

	s := &Session{
		Token:           resp.Token,
		UserID:          resp.User.ID,
		Role:            resp.User.Role,
		Name:            resp.User.Name,
		Email:           resp.User.Email,
		Region:          resp.User.Region,
		ShippingAddress: resp.ShippingAddress,
		LoggedInAt:      time.Now(),
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	if b, err := json.Marshal(s); err == nil {
		c.cachePut(storeSession, "current", b)
	}

	return s.Clone(), nil
}

// Logout drops the session and wipes its persisted copy. Purely local;
// the backend uses stateless tokens.
func (c *Client) Logout() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()

	c.cacheWipe(storeSession)
}

// Session returns a copy of the active session, or nil when logged
// out.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.session.Clone()
}

func (c *Client) requireSession() (*Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.session == nil {
		return nil, ErrNotLoggedIn
	}

	return c.session, nil
}

// restoreSession resumes the session a previous process persisted.
func (c *Client) restoreSession() {
	rec, ok := c.cacheGet(storeSession, "current")
	if !ok {
		return
	}

	var s Session
	if err := rec.Unmarshal(&s); err != nil {
		return
	}

	if s.Token == "" {
		return
	}

	c.mu.Lock()
	c.session = &s
	c.mu.Unlock()
}
