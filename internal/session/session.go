// Package session tracks which account is acting. Logging in is a cosmetic
// account switch; there is no authentication.
package session

import (
	"errors"
	"fmt"
	"sync"
)

// Role decides what an account may do.
type Role string

const (
	RoleReadOnly Role = "readonly"
	RoleHR       Role = "hr"
)

// Account is a switchable identity.
type Account struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Title string `json:"title"`
}

// CanEdit reports whether the account may originate mutations.
func (a Account) CanEdit() bool {
	return a.Role == RoleHR
}

// DefaultAccountID is the account a new or logged-out session uses.
const DefaultAccountID = "main"

var accounts = []Account{
	{ID: DefaultAccountID, Name: "Main Account", Role: RoleReadOnly, Title: "Read-only access"},
	{ID: "kraya", Name: "Kraya", Role: RoleHR, Title: "HR Manager"},
	{ID: "amit", Name: "Amit", Role: RoleHR, Title: "Senior Recruiter"},
	{ID: "ryan", Name: "Ryan", Role: RoleHR, Title: "Talent Acquisition"},
	{ID: "sara", Name: "Sara", Role: RoleHR, Title: "HR Coordinator"},
}

// ErrUnknownAccount is returned by Login for an id not in Accounts.
var ErrUnknownAccount = errors.New("unknown account")

// Accounts returns the switchable accounts, default first.
func Accounts() []Account {
	out := make([]Account, len(accounts))
	copy(out, accounts)
	return out
}

// Lookup finds an account by id.
func Lookup(id string) (Account, bool) {
	for _, a := range accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// Source yields the current actor.
type Source interface {
	Current() Account
}

// Session holds the current account. Safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	current Account
}

// New returns a session on the default read-only account.
func New() *Session {
	def, _ := Lookup(DefaultAccountID)
	return &Session{current: def}
}

// Restore returns a session on the account with the given id, falling back
// to the default account when the id is empty or unknown.
func Restore(id string) *Session {
	s := New()
	if id != "" {
		_ = s.Login(id)
	}
	return s
}

// Current returns the acting account.
func (s *Session) Current() Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Login replaces the current account. An unknown id leaves the session
// unchanged.
func (s *Session) Login(id string) error {
	a, ok := Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAccount, id)
	}
	s.mu.Lock()
	s.current = a
	s.mu.Unlock()
	return nil
}

// Logout returns to the default account.
func (s *Session) Logout() {
	def, _ := Lookup(DefaultAccountID)
	s.mu.Lock()
	s.current = def
	s.mu.Unlock()
}
