package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("generates an ID", func(t *testing.T) {
		handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RequestID(r.Context()) == "" {
				t.Error("expected non-empty request ID in context")
			}
			w.WriteHeader(http.StatusOK)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/field/farms", http.NoBody))
		if w.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("propagates an incoming ID", func(t *testing.T) {
		handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := RequestID(r.Context()); id != "trace-42" {
				t.Errorf("context ID = %q, want trace-42", id)
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/api/v1/field/farms", http.NoBody)
		req.Header.Set("X-Request-ID", "trace-42")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if id := w.Header().Get("X-Request-ID"); id != "trace-42" {
			t.Errorf("response X-Request-ID = %q, want trace-42", id)
		}
	})
}

func TestLoggingMiddleware_PreservesStatus(t *testing.T) {
	handler := LoggingMiddleware(zap.NewNop(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/field/readings", http.NoBody))
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := SecurityHeadersMiddleware(okHandler())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", http.NoBody))

	for header, want := range map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestVersionHeaderMiddleware(t *testing.T) {
	handler := VersionHeaderMiddleware(okHandler())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", http.NoBody))
	if w.Header().Get("X-CropSense-Version") == "" {
		t.Error("expected X-CropSense-Version header to be set")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("panic becomes a problem response", func(t *testing.T) {
		handler := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("handler blew up")
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/detect/status", http.NoBody))
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
			t.Errorf("content-type = %q, want application/problem+json", ct)
		}
	})

	t.Run("healthy handler passes through", func(t *testing.T) {
		handler := RecoveryMiddleware(zap.NewNop())(okHandler())
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", http.NoBody))
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("blocks past the burst", func(t *testing.T) {
		handler := RateLimitMiddleware(1, 1, nil)(okHandler())
		req := httptest.NewRequest("GET", "/api/v1/field/readings", http.NoBody)
		req.RemoteAddr = "10.0.0.1:9999"

		w1 := httptest.NewRecorder()
		handler.ServeHTTP(w1, req)
		if w1.Code != http.StatusOK {
			t.Fatalf("first request: status = %d, want %d", w1.Code, http.StatusOK)
		}
		w2 := httptest.NewRecorder()
		handler.ServeHTTP(w2, req)
		if w2.Code != http.StatusTooManyRequests {
			t.Fatalf("second request: status = %d, want %d", w2.Code, http.StatusTooManyRequests)
		}
	})

	t.Run("independent budgets per client", func(t *testing.T) {
		handler := RateLimitMiddleware(1, 1, nil)(okHandler())

		for _, addr := range []string{"10.0.0.1:9999", "10.0.0.2:9999"} {
			req := httptest.NewRequest("GET", "/api/v1/field/readings", http.NoBody)
			req.RemoteAddr = addr
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Errorf("client %s: status = %d, want %d", addr, w.Code, http.StatusOK)
			}
		}
	})

	t.Run("skip paths bypass the limiter", func(t *testing.T) {
		handler := RateLimitMiddleware(0.001, 1, []string{"/healthz"})(okHandler())
		req := httptest.NewRequest("GET", "/healthz", http.NoBody)
		req.RemoteAddr = "10.0.0.3:9999"

		for i := 0; i < 10; i++ {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
			}
		}
	})
}

func TestChain_OrdersMiddleware(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-before")
				next.ServeHTTP(w, r)
				order = append(order, name+"-after")
			})
		}
	}

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusOK)
	}), mark("outer"), mark("inner"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", http.NoBody))

	want := []string{"outer-before", "inner-before", "handler", "inner-after", "outer-after"}
	if len(order) != len(want) {
		t.Fatalf("execution order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr only", "192.168.1.100:12345", "", "192.168.1.100"},
		{"x-forwarded-for wins", "127.0.0.1:12345", "203.0.113.50, 70.41.3.18", "203.0.113.50"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", http.NoBody)
			req.RemoteAddr = tc.remoteAddr
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if ip := clientIP(req); ip != tc.want {
				t.Errorf("clientIP = %q, want %q", ip, tc.want)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	id1, id2 := generateID(), generateID()
	if len(id1) != 32 {
		t.Errorf("len(id) = %d, want 32", len(id1))
	}
	if id1 == id2 {
		t.Error("two generated IDs should not be equal")
	}
}

func TestStatusWriter(t *testing.T) {
	sw := &statusWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	sw.WriteHeader(http.StatusCreated)
	sw.WriteHeader(http.StatusNotFound)
	if sw.status != http.StatusCreated {
		t.Errorf("status = %d, want %d (first call wins)", sw.status, http.StatusCreated)
	}
}
