package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/robalobadob/semantle/internal/game"
	"github.com/robalobadob/semantle/internal/store"
)

const (
	sessionCookieName = "semantle_sid"
	sessionAudience   = "semantle-session"
)

// session returns the caller's game session, creating one (and its cookie)
// when the cookie is missing, invalid or points to an expired session.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*game.Session, error) {
	ctx := r.Context()
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if id, ok := s.parseSessionToken(c.Value); ok {
			sess, err := s.store.Get(ctx, id)
			if err == nil {
				return sess, nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			// Keep the id so rounds stay linked to this browser.
			sess = game.NewSession(id)
			return sess, s.store.Save(ctx, sess)
		}
	}

	sess := game.NewSession("")
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	tok, err := s.signSessionToken(sess.ID())
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, s.cookie(sessionCookieName, tok, time.Time{}))
	return sess, nil
}

// existingSession returns the caller's session without creating one.
func (s *Server) existingSession(r *http.Request) (*game.Session, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, false
	}
	id, ok := s.parseSessionToken(c.Value)
	if !ok {
		return nil, false
	}
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		return nil, false
	}
	return sess, true
}

func (s *Server) signSessionToken(id string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  id,
		Audience: jwt.ClaimStrings{sessionAudience},
		IssuedAt: jwt.NewNumericDate(time.Now()),
	})
	return t.SignedString([]byte(s.opts.JWTSecret))
}

func (s *Server) parseSessionToken(tok string) (string, bool) {
	claims := &jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, s.keyFunc,
		jwt.WithAudience(sessionAudience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !t.Valid || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

func (s *Server) keyFunc(*jwt.Token) (any, error) {
	return []byte(s.opts.JWTSecret), nil
}

// cookie builds an HttpOnly cookie. A zero expiry makes a browser-session cookie.
func (s *Server) cookie(name, value string, exp time.Time) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if s.opts.Production {
		sameSite = http.SameSiteNoneMode // required for cross-site contexts when Secure
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Production,
		SameSite: sameSite,
		Expires:  exp,
	}
}
