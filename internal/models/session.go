package models

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

const (
	// MinBytesPerToken is the minimum number of bytes for a session token
	MinBytesPerToken = 32
	// DefaultTokenLength is the default token length (32 bytes = 256 bits)
	DefaultTokenLength = 32
	// CaptureTokenLength is the size of the one-time capture token
	CaptureTokenLength = 16
	// SessionDuration is how long an idle session lasts (24 hours)
	SessionDuration = 24 * time.Hour
)

// Session is one browser's view of the app.
type Session struct {
	// Token is only set when the session is created. Lookups leave it
	// empty because only the hash of the token is kept.
	Token     string
	TokenHash string
	State     ViewState
	ExpiresAt time.Time

	busy bool
}

// SessionService keeps sessions in process memory. Nothing survives a restart.
type SessionService struct {
	BytesPerToken   int
	SessionDuration time.Duration

	// Now is swapped out in tests.
	Now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionService(duration time.Duration) *SessionService {
	if duration <= 0 {
		duration = SessionDuration
	}
	return &SessionService{
		BytesPerToken:   DefaultTokenLength,
		SessionDuration: duration,
		Now:             time.Now,
		sessions:        make(map[string]*Session),
	}
}

// Create starts a new session on the Input screen.
func (ss *SessionService) Create() (*Session, error) {
	bytesPerToken := ss.BytesPerToken
	if bytesPerToken < MinBytesPerToken {
		bytesPerToken = MinBytesPerToken
	}
	token, err := GenerateToken(bytesPerToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	captureToken, err := GenerateToken(CaptureTokenLength)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	now := ss.Now()
	session := &Session{
		TokenHash: ss.hash(token),
		State:     NewViewState(captureToken),
		ExpiresAt: now.Add(ss.SessionDuration),
	}

	ss.mu.Lock()
	ss.sessions[session.TokenHash] = session
	ss.mu.Unlock()

	created := *session
	created.Token = token
	return &created, nil
}

// Lookup returns a snapshot of the session for token and extends its expiry.
func (ss *SessionService) Lookup(token string) (*Session, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	session, err := ss.live(token)
	if err != nil {
		return nil, err
	}
	snapshot := *session
	return &snapshot, nil
}

// Update applies fn to the session state atomically and returns the result.
// A state that lands on Input without a capture token gets a fresh one.
func (ss *SessionService) Update(token string, fn func(ViewState) ViewState) (ViewState, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	session, err := ss.live(token)
	if err != nil {
		return ViewState{}, err
	}

	next := Settle(fn(session.State))
	if next.Screen == ScreenInput && next.CaptureToken == "" {
		captureToken, err := GenerateToken(CaptureTokenLength)
		if err != nil {
			return session.State, fmt.Errorf("update session: %w", err)
		}
		next.CaptureToken = captureToken
	}
	session.State = next
	return next, nil
}

// Begin claims the session for analyzing the upload bound to captureToken.
// Only one analysis may run at a time, and only a capture token the current
// Input screen accepts may start one.
func (ss *SessionService) Begin(token, captureToken string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	session, err := ss.live(token)
	if err != nil {
		return err
	}
	if session.busy {
		return ErrAnalysisInFlight
	}
	if !Accepts(session.State, captureToken) {
		return ErrStaleCapture
	}
	session.busy = true
	return nil
}

// End clears the busy flag set by Begin.
func (ss *SessionService) End(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if session, ok := ss.sessions[ss.hash(token)]; ok {
		session.busy = false
	}
}

// Prune drops every session that expired before now and reports how many.
func (ss *SessionService) Prune(now time.Time) int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed := 0
	for tokenHash, session := range ss.sessions {
		if !now.Before(session.ExpiresAt) && !session.busy {
			delete(ss.sessions, tokenHash)
			removed++
		}
	}
	return removed
}

// Len reports how many sessions are held.
func (ss *SessionService) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// live must be called with mu held.
func (ss *SessionService) live(token string) (*Session, error) {
	tokenHash := ss.hash(token)
	session, ok := ss.sessions[tokenHash]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := ss.Now()
	if !now.Before(session.ExpiresAt) {
		delete(ss.sessions, tokenHash)
		return nil, ErrSessionExpired
	}
	session.ExpiresAt = now.Add(ss.SessionDuration)
	return session, nil
}

func (ss *SessionService) hash(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(sum[:])
}

// GenerateToken returns length random bytes as unpadded URL-safe base64.
func GenerateToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
