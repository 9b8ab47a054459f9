package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/vishwas0229/riya-collections/internal/domain/auth"
	"github.com/vishwas0229/riya-collections/internal/domain/order"
)

// keyContextKey is the context key for the authenticated API key.
type keyContextKey struct{}

// KeyFromContext extracts the authenticated API key from the context.
func KeyFromContext(ctx context.Context) (*auth.Key, bool) {
	k, ok := ctx.Value(keyContextKey{}).(*auth.Key)
	return k, ok
}

// Actor maps the authenticated key to the order domain's actor identity.
func actorFor(k *auth.Key) order.Actor {
	return order.Actor{
		UserID: k.UserID,
		Staff:  k.Role == auth.RoleStaff,
	}
}

// Authenticator authenticates API requests via HMAC-SHA256 hashed API keys.
type Authenticator struct {
	keys   auth.Repository
	pepper []byte
}

// NewAuthenticator creates an Authenticator with the given API key
// repository and HMAC pepper.
func NewAuthenticator(keys auth.Repository, pepper []byte) *Authenticator {
	return &Authenticator{
		keys:   keys,
		pepper: pepper,
	}
}

// Middleware authenticates the X-API-Key header by computing its HMAC-SHA256,
// looking it up, and performing a constant-time comparison to prevent timing
// side-channels. The resolved key is stored in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		mac := hmac.New(sha256.New, a.pepper)
		mac.Write([]byte(key))
		hash := mac.Sum(nil)

		info, err := a.keys.FindByHash(r.Context(), hex.EncodeToString(hash))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		// The lookup already matched, but the stored hash could differ from
		// what we computed if the repository returns a stale or wrong row.
		stored, err := hex.DecodeString(info.KeyHash)
		if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), keyContextKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HashKey computes the stored hash for raw API key material. Shared with the
// seeding tool so both sides derive identical hashes.
func HashKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
