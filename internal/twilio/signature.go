package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/aidevelo/voice-gateway/pkg/logger"
	"go.uber.org/zap"
)

// SignatureHeader carries the base64 HMAC-SHA1 tag computed by Twilio.
const SignatureHeader = "X-Twilio-Signature"

type paramPair struct {
	key   string
	value string
}

// flattenParams expands form parameters into (key, value) pairs sorted by
// key, then value, for deterministic concatenation. Multi-valued keys
// expand into one pair per value.
func flattenParams(params url.Values) []paramPair {
	pairs := make([]paramPair, 0, len(params))
	for key, values := range params {
		for _, v := range values {
			pairs = append(pairs, paramPair{key: key, value: v})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})
	return pairs
}

// ComputeSignature computes the expected authenticity tag for a webhook:
// HMAC-SHA1 over requestURL + key1 + value1 + key2 + value2 + ... (no
// separators), base64-encoded. This must match Twilio's canonicalization
// byte for byte.
func ComputeSignature(authToken, requestURL string, params url.Values) string {
	var b strings.Builder
	b.WriteString(requestURL)
	for _, p := range flattenParams(params) {
		b.WriteString(p.key)
		b.WriteString(p.value)
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// firstForwardedToken takes the first comma-separated token of a forwarded
// header. Proxies append their own values, but Twilio signed the URL the
// first hop saw.
func firstForwardedToken(value string) string {
	if value == "" {
		return ""
	}
	first, _, _ := strings.Cut(value, ",")
	return strings.TrimSpace(first)
}

// RequestURL reconstructs the externally observed request URL, honoring
// X-Forwarded-Proto/X-Forwarded-Host ahead of the raw socket values since
// the gateway sits behind a reverse proxy.
func RequestURL(r *http.Request) string {
	proto := firstForwardedToken(r.Header.Get("X-Forwarded-Proto"))
	if proto == "" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}

	host := firstForwardedToken(r.Header.Get("X-Forwarded-Host"))
	if host == "" {
		host = r.Host
	}

	return proto + "://" + host + r.URL.RequestURI()
}

// signaturesEqual compares tags in constant time after a length check.
func signaturesEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return hmac.Equal([]byte(a), []byte(b))
}

// Verifier rejects webhook requests whose signature does not match the
// shared auth token. With no token configured, verification is skipped in
// development (warned once) and refused with a 500 in production.
type Verifier struct {
	authToken  string
	production bool

	warnedMissingToken atomic.Bool
}

// NewVerifier creates a webhook signature verifier.
func NewVerifier(authToken string, production bool) *Verifier {
	return &Verifier{
		authToken:  authToken,
		production: production,
	}
}

// Middleware verifies the request signature before passing it on.
// Rejections are side-effect-free except logging.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v.authToken == "" {
			if v.production {
				logger.Base().Error("webhook signature validation not configured in production")
				http.Error(w, `{"success":false,"error":"webhook signature validation not configured"}`, http.StatusInternalServerError)
				return
			}
			if v.warnedMissingToken.CompareAndSwap(false, true) {
				logger.Base().Warn("TWILIO_AUTH_TOKEN not set; skipping signature validation (development only)")
			}
			next.ServeHTTP(w, r)
			return
		}

		signature := r.Header.Get(SignatureHeader)
		if signature == "" {
			http.Error(w, `{"success":false,"error":"missing Twilio signature"}`, http.StatusForbidden)
			return
		}

		if err := r.ParseForm(); err != nil {
			logger.Base().Warn("webhook form parse failed", zap.Error(err))
			http.Error(w, `{"success":false,"error":"invalid form body"}`, http.StatusBadRequest)
			return
		}

		expected := ComputeSignature(v.authToken, RequestURL(r), r.PostForm)
		if !signaturesEqual(signature, expected) {
			logger.Base().Warn("invalid webhook signature",
				zap.String("url", RequestURL(r)),
				zap.String("remote_addr", r.RemoteAddr))
			http.Error(w, `{"success":false,"error":"invalid Twilio signature"}`, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
