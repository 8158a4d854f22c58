package web

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

const (
	cookieName = "randevu_session"
	sessionTTL = 14 * 24 * time.Hour
)

type ctxKey string

const operatorKey ctxKey = "operator"

// Auth guards the control page with a single operator account whose
// password is kept only as a bcrypt hash.
type Auth struct {
	sc           *securecookie.SecureCookie
	username     string
	passwordHash []byte
}

func NewAuth(username, passwordHash string, hashKey, blockKey []byte) *Auth {
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionTTL.Seconds()))
	return &Auth{sc: sc, username: username, passwordHash: []byte(passwordHash)}
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Authenticate compares both fields; the hash is checked even for an unknown
// username so the two failures take the same time.
func (a *Auth) Authenticate(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
	return userOK && passOK
}

func (a *Auth) SetSession(w http.ResponseWriter, r *http.Request) error {
	val := map[string]string{"op": a.username}
	encoded, err := a.sc.Encode(cookieName, val)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
		MaxAge:   int(sessionTTL.Seconds()),
	})
	return nil
}

func (a *Auth) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func (a *Auth) Operator(r *http.Request) (string, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return "", false
	}
	val := map[string]string{}
	if err := a.sc.Decode(cookieName, c.Value, &val); err != nil {
		return "", false
	}
	op := val["op"]
	if op == "" || op != a.username {
		return "", false
	}
	return op, true
}

// RequireAuth redirects browsers to /login; API callers (Accept: application/json) get 401.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op, ok := a.Operator(r)
		if !ok {
			if wantsJSON(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		ctx := context.WithValue(r.Context(), operatorKey, op)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func OperatorFromContext(ctx context.Context) string {
	op, _ := ctx.Value(operatorKey).(string)
	return op
}
