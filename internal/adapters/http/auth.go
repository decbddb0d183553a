package httpadapter

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
)

const sharedSecretHeader = "X-Import-Secret"

var (
	errMissingServerSecret = errors.New("import shared secret is not configured")
	errBadSecret           = errors.New("missing or invalid " + sharedSecretHeader + " header")
)

// authorizeSharedSecret checks the import secret header. A server without a
// configured secret refuses every request instead of running open.
func authorizeSharedSecret(r *http.Request, expected string) error {
	if expected == "" {
		return domain.WrapError(domain.ErrMisconfigured, "authorize", errMissingServerSecret)
	}
	if !isAuthorizedSecretHeader(r.Header.Get(sharedSecretHeader), expected) {
		return domain.WrapError(domain.ErrUnauthorized, "authorize", errBadSecret)
	}
	return nil
}

func isAuthorizedSecretHeader(headerValue, expected string) bool {
	headerValue = strings.TrimSpace(headerValue)
	if headerValue == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(headerValue), []byte(expected)) == 1
}

func (rt *Router) requireSecret(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := authorizeSharedSecret(r, rt.secret); err != nil {
			reason := "unauthorized"
			if domain.IsKind(err, domain.ErrMisconfigured) {
				reason = "misconfigured"
				rt.logger.Error("import_secret_not_configured", "path", r.URL.Path)
			}
			rt.recordRejected(reason)
			rt.writeError(w, r, err)
			return
		}
		next(w, r)
	}
}
