package devserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ContextKey type for context keys to avoid collisions
type ContextKey string

// ClaimsKey is the context key for JWT claims
const ClaimsKey ContextKey = "jwt_claims"

// devRecordID is attached to requests when authentication is bypassed
const devRecordID = "dev-record"

// Middleware provides HTTP middleware functions
type Middleware struct {
	issuer *TokenIssuer
	noAuth bool
	logger *zap.Logger
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(issuer *TokenIssuer, noAuth bool, logger *zap.Logger) *Middleware {
	return &Middleware{
		issuer: issuer,
		noAuth: noAuth,
		logger: logger,
	}
}

// AuthRequired middleware requires a valid record token
func (m *Middleware) AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.noAuth {
			ctx := context.WithValue(r.Context(), ClaimsKey, &RecordClaims{
				RecordID: devRecordID,
				Type:     AuthRecordType,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token := extractToken(r)
		if token == "" {
			writeError(w, "The request requires valid record authorization token to be set.", http.StatusUnauthorized)
			return
		}

		claims, err := m.issuer.VerifyToken(token)
		if err != nil {
			m.logger.Debug("rejected token", zap.Error(err))
			writeError(w, "The request requires valid record authorization token to be set.", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging middleware logs each request once it completes
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// Recovery middleware recovers from panics and returns 500 error
func (m *Middleware) Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("handler panic",
					zap.String("path", r.URL.Path),
					zap.Any("panic", err),
				)
				writeError(w, "Something went wrong while processing your request.", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// GetClaims extracts the JWT claims from the request context
func GetClaims(r *http.Request) *RecordClaims {
	if claims, ok := r.Context().Value(ClaimsKey).(*RecordClaims); ok {
		return claims
	}
	return nil
}

// extractToken extracts the token from the Authorization header.
// Both "Bearer token" and raw "token" are accepted.
func extractToken(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// statusRecorder captures the response status while keeping streaming support.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
