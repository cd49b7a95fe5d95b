package httpx

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/OpenConext/OpenConext-teams/pkg/slogx"
)

// IdentityClaims is the payload of the identity token the SSO gateway mints
// after a successful federated login. The subject is the person urn.
type IdentityClaims struct {
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	HomeOrg     string `json:"schac_home_org,omitempty"`
	Guest       bool   `json:"guest"`

	jwt.RegisteredClaims
}

// AuthnMiddleware verifies the bearer identity token (HS256, shared secret
// with the gateway) and injects the caller's Identity into the request
// context. Requests without a valid token get a 401.
func AuthnMiddleware(secret []byte) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims := &IdentityClaims{}
			_, err := jwt.ParseWithClaims(raw, claims,
				func(t *jwt.Token) (any, error) { return secret, nil },
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
				jwt.WithExpirationRequired(),
			)
			if err != nil {
				log.Warn("identity token verification failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}
			if claims.Subject == "" {
				writeBearerError(w, "token missing subject")
				return
			}

			ctx = ContextWithIdentity(ctx, Identity{
				ID:          claims.Subject,
				DisplayName: claims.DisplayName,
				Email:       claims.Email,
				HomeOrg:     claims.HomeOrg,
				Guest:       claims.Guest,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
