package security

import (
	"context"
	"encoding/gob"
	"errors"
	"net/http"
	"time"

	"coursehub/internal/db"
	"coursehub/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	cookieName = "coursehub_session"
	sessionKey = "sid"
)

const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

type Flash struct {
	Category string
	Message  string
}

func init() {
	gob.Register(Flash{})
}

// SessionStore keeps the session id in a signed cookie and the session
// itself in the database, so logout and expiry are enforced server-side.
type SessionStore struct {
	cookies *sessions.CookieStore
	db      *db.DB
	ttl     time.Duration
	now     func() time.Time
}

func NewSessionStore(database *db.DB, secret string, ttl time.Duration, secure bool) *SessionStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionStore{
		cookies: store,
		db:      database,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *SessionStore) session(r *http.Request) *sessions.Session {
	// Get still hands back a fresh session when the cookie cannot be decoded.
	session, _ := s.cookies.Get(r, cookieName)
	return session
}

func (s *SessionStore) CreateSession(ctx context.Context, userID uint) (*models.Session, error) {
	record := &models.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.db.CreateSession(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Login replaces whatever session the request carried with a new one for user.
func (s *SessionStore) Login(w http.ResponseWriter, r *http.Request, user *models.User) error {
	ctx := r.Context()
	session := s.session(r)

	if previous, ok := session.Values[sessionKey].(string); ok && previous != "" {
		if err := s.db.DeleteSession(ctx, previous); err != nil {
			return err
		}
	}

	record, err := s.CreateSession(ctx, user.ID)
	if err != nil {
		return err
	}

	session.Values[sessionKey] = record.ID
	return session.Save(r, w)
}

// CurrentUser returns nil without error for anonymous requests.
func (s *SessionStore) CurrentUser(r *http.Request) (*models.User, error) {
	ctx := r.Context()
	session := s.session(r)

	sessionID, _ := session.Values[sessionKey].(string)
	if sessionID == "" {
		return nil, nil
	}

	record, err := s.db.GetSession(ctx, sessionID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if record.Expired(s.now()) {
		if err := s.db.DeleteSession(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	user, err := s.db.GetUserByID(ctx, record.UserID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

func (s *SessionStore) Logout(w http.ResponseWriter, r *http.Request) error {
	session := s.session(r)

	if sessionID, ok := session.Values[sessionKey].(string); ok && sessionID != "" {
		if err := s.db.DeleteSession(r.Context(), sessionID); err != nil {
			return err
		}
	}

	delete(session.Values, sessionKey)
	return session.Save(r, w)
}

func (s *SessionStore) AddFlash(w http.ResponseWriter, r *http.Request, category, message string) error {
	session := s.session(r)
	session.AddFlash(Flash{Category: category, Message: message})
	return session.Save(r, w)
}

// Flashes pops pending flashes. It writes a cookie, so call it before the
// response body.
func (s *SessionStore) Flashes(w http.ResponseWriter, r *http.Request) []Flash {
	session := s.session(r)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}

	flashes := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			flashes = append(flashes, f)
		}
	}
	_ = session.Save(r, w)
	return flashes
}

// SweepExpired deletes expired sessions and returns how many were removed.
func (s *SessionStore) SweepExpired(ctx context.Context) (int64, error) {
	return s.db.DeleteExpiredSessions(ctx, s.now())
}
