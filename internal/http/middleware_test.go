package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cmc-edu/room-booking/internal/application"
	"github.com/cmc-edu/room-booking/internal/persistence"
)

func TestRequestLoggerAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	var seen string
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
		if LoggerFromContext(r.Context()) == nil {
			t.Fatalf("expected request scoped logger")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected uuid request id, got %q", seen)
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Fatalf("expected response header %q, got %q", seen, rec.Header().Get("X-Request-ID"))
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one json log line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "request completed" || entry["status"] != float64(http.StatusTeapot) || entry["request_id"] != seen {
		t.Fatalf("unexpected log entry %v", entry)
	}
}

func TestRequestLoggerKeepsIncomingRequestID(t *testing.T) {
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected incoming id to be echoed, got %q", got)
	}
}

func TestRecoveryWritesServerError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	handler := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !bytes.Contains(buf.Bytes(), []byte("panic recovered")) {
		t.Fatalf("expected panic to be logged, got %q", buf.String())
	}
}

func TestTimeoutBoundsContext(t *testing.T) {
	var deadline time.Time
	handler := Timeout(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		deadline, ok = r.Context().Deadline()
		if !ok {
			t.Fatalf("expected a deadline")
		}
		<-r.Context().Done()
		newResponder(nil).handleServiceError(r.Context(), w, r.Context().Err())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if deadline.IsZero() {
		t.Fatalf("deadline was not set")
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after deadline, got %d", rec.Code)
	}
}

func TestTimeoutDisabled(t *testing.T) {
	handler := Timeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); ok {
			t.Fatalf("expected no deadline")
		}
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRateLimiterAllow(t *testing.T) {
	now := time.Date(2025, time.June, 11, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("expected burst of two to pass")
	}
	if rl.Allow("a") {
		t.Fatalf("expected third request to be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("expected other clients to be unaffected")
	}

	now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Fatalf("expected a token after one second")
	}

	now = now.Add(2 * time.Minute)
	rl.Allow("c")
	if got := rl.Len(); got != 1 {
		t.Fatalf("expected idle clients to be swept, tracking %d", got)
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, time.Minute)
	handler := rl.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(method, email string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/bookings", nil)
		req.RemoteAddr = "10.0.0.7:5123"
		if email != "" {
			req.Header.Set(IdentityHeader, email)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(http.MethodPost, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first post to pass, got %d", rec.Code)
	}
	rec := send(http.MethodPost, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if rec := send(http.MethodGet, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected reads to bypass the limiter, got %d", rec.Code)
	}
	if rec := send(http.MethodPost, "a@cmc.edu.vn"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected identified client to have its own bucket, got %d", rec.Code)
	}
}

type resolverStub struct {
	principal application.Principal
	err       error
}

func (r resolverStub) ResolvePrincipal(context.Context, string) (application.Principal, error) {
	return r.principal, r.err
}

func TestIdentify(t *testing.T) {
	principal := application.Principal{Email: "pctsv@cmc.edu.vn", Role: "pctsv"}

	cases := []struct {
		name     string
		email    string
		resolver resolverStub
		status   int
		wantUser bool
	}{
		{name: "anonymous", status: http.StatusOK},
		{name: "known", email: principal.Email, resolver: resolverStub{principal: principal}, status: http.StatusOK, wantUser: true},
		{name: "unknown", email: "x@cmc.edu.vn", resolver: resolverStub{err: application.ErrUnauthenticated}, status: http.StatusUnauthorized},
		{name: "store failure", email: "x@cmc.edu.vn", resolver: resolverStub{err: errors.New("db down")}, status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := Identify(tc.resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, ok := PrincipalFromContext(r.Context())
				if ok != tc.wantUser {
					t.Fatalf("expected principal presence %v, got %v", tc.wantUser, ok)
				}
				if ok && got.Email != principal.Email {
					t.Fatalf("unexpected principal %+v", got)
				}
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.email != "" {
				req.Header.Set(IdentityHeader, tc.email)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestTranslateValidationMessage(t *testing.T) {
	if got := translateValidationMessage("room does not exist"); got != "Phòng không tồn tại." {
		t.Fatalf("unexpected translation %q", got)
	}
	if got := translateValidationMessage("something new"); got != "something new" {
		t.Fatalf("expected untranslated passthrough, got %q", got)
	}
}

func TestHandlerLoggerTagsRequest(t *testing.T) {
	tests := []struct {
		name      string
		principal application.Principal
		want      map[string]any
	}{
		{
			name:      "identified",
			principal: application.Principal{Email: "pctsv@cmc.edu.vn", Role: persistence.RolePCTSV},
			want:      map[string]any{"principal": "pctsv@cmc.edu.vn", "role": "pctsv"},
		},
		{
			name: "anonymous",
			want: map[string]any{"principal": "anonymous"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			fallback := slog.New(slog.NewJSONHandler(&buf, nil))
			ctx := ContextWithPrincipal(ContextWithRequestID(context.Background(), "req-1"), tc.principal)

			handlerLogger(ctx, fallback, "BookingHandler", "Create", "room_code", "VPC1_101").InfoContext(ctx, "hello")

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("decode log entry: %v", err)
			}
			want := map[string]any{
				"handler":    "BookingHandler",
				"operation":  "Create",
				"request_id": "req-1",
				"room_code":  "VPC1_101",
			}
			for k, v := range tc.want {
				want[k] = v
			}
			for k, v := range want {
				if entry[k] != v {
					t.Fatalf("entry[%q] = %v, want %v (entry %v)", k, entry[k], v, entry)
				}
			}
		})
	}
}
