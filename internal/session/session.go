// Package session holds the signed-in identity of the client and notifies
// listeners when it changes.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/recipebook/internal/errs"
	"github.com/and161185/recipebook/internal/model"
)

// AuthBackend is the remote authentication provider.
type AuthBackend interface {
	SignUp(ctx context.Context, email, password string) (model.Identity, error)
	SignIn(ctx context.Context, email, password string) (model.Tokens, model.Identity, error)
	SendPasswordReset(ctx context.Context, email string) error
	// UpdateDisplay and DeleteIdentity act on the identity of the bearer token.
	UpdateDisplay(ctx context.Context, email, displayName, photoURL string) error
	DeleteIdentity(ctx context.Context, email string) error
}

// State is what listeners receive. A zero Identity means signed out.
type State struct {
	Identity model.Identity
	Tokens   model.Tokens
}

// SignedIn reports whether st carries an identity.
func (st State) SignedIn() bool { return st.Identity.Email != "" }

type listener struct {
	fn func(State)

	mu      sync.Mutex
	stopped bool
}

func (l *listener) call(st State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.stopped {
		l.fn(st)
	}
}

// Session is the current-user accessor shared by every screen.
type Session struct {
	backend AuthBackend
	log     *zap.Logger
	now     func() time.Time

	// notify serializes listener calls so they see changes in order.
	notify sync.Mutex

	mu        sync.Mutex
	state     State
	listeners map[*listener]struct{}
}

// New constructs a signed-out session.
func New(backend AuthBackend, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{backend: backend, log: log, now: time.Now, listeners: map[*listener]struct{}{}}
}

// Current returns the signed-in identity.
func (s *Session) Current() (model.Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Identity, s.state.SignedIn()
}

// Token returns the access token of the signed-in identity, or "" when
// signed out or expired.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.state.Tokens
	if t.AccessToken == "" || (!t.ExpiresAt.IsZero() && s.now().After(t.ExpiresAt)) {
		return ""
	}
	return t.AccessToken
}

// OnChange registers fn for identity changes and returns its cancel function.
// fn is not called for the current state. After cancel returns fn is not
// called again; repeated cancels are no-ops.
func (s *Session) OnChange(fn func(State)) (cancel func()) {
	l := &listener{fn: fn}
	s.mu.Lock()
	s.listeners[l] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, l)
			s.mu.Unlock()
			l.mu.Lock()
			l.stopped = true
			l.mu.Unlock()
		})
	}
}

// set replaces the state and notifies listeners when the identity changed.
func (s *Session) set(st State) {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	prev := s.state
	s.state = st
	ls := make([]*listener, 0, len(s.listeners))
	for l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	if prev.Identity == st.Identity {
		return
	}
	s.log.Info("identity changed", zap.String("from", prev.Identity.Email), zap.String("to", st.Identity.Email))
	for _, l := range ls {
		l.call(st)
	}
}

// Restore signs in from previously saved tokens.
func (s *Session) Restore(tokens model.Tokens, id model.Identity) {
	if tokens.AccessToken == "" || id.Email == "" {
		return
	}
	s.set(State{Identity: id, Tokens: tokens})
}

// SignUp creates the identity and signs in with it.
func (s *Session) SignUp(ctx context.Context, email, password string) (model.Identity, error) {
	if _, err := s.backend.SignUp(ctx, email, password); err != nil {
		return model.Identity{}, errs.Remote("sign up", err)
	}
	if err := s.SignIn(ctx, email, password); err != nil {
		return model.Identity{}, err
	}
	id, _ := s.Current()
	return id, nil
}

// SignIn authenticates and replaces the current identity.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	tokens, id, err := s.backend.SignIn(ctx, email, password)
	if err != nil {
		return errs.Remote("sign in", err)
	}
	s.set(State{Identity: id, Tokens: tokens})
	return nil
}

// SignOut forgets the current identity.
func (s *Session) SignOut() { s.set(State{}) }

// SendPasswordReset asks the backend to mail a reset token.
func (s *Session) SendPasswordReset(ctx context.Context, email string) error {
	return errs.Remote("send password reset", s.backend.SendPasswordReset(ctx, email))
}

// UpdateProfile changes display name and photo of the signed-in identity.
func (s *Session) UpdateProfile(ctx context.Context, displayName, photoURL string) error {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	if !st.SignedIn() {
		return errs.ErrUnauthorized
	}
	if err := s.backend.UpdateDisplay(ctx, st.Identity.Email, displayName, photoURL); err != nil {
		return errs.Remote("update profile", err)
	}
	st.Identity.DisplayName, st.Identity.PhotoURL = displayName, photoURL
	s.set(st)
	return nil
}

// DeleteCurrent removes the signed-in identity and signs out.
func (s *Session) DeleteCurrent(ctx context.Context) error {
	id, ok := s.Current()
	if !ok {
		return errs.ErrUnauthorized
	}
	if err := s.backend.DeleteIdentity(ctx, id.Email); err != nil {
		return errs.Remote("delete identity", err)
	}
	s.SignOut()
	return nil
}
