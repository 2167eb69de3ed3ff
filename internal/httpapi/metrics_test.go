package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRoutePatternOrPathFallsBack(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/some/raw/path", nil)
	if got := routePatternOrPath(r); got != "/some/raw/path" {
		t.Fatalf("got %q", got)
	}
}

func TestRoutePatternOrPathUsesChiPattern(t *testing.T) {
	mux := chi.NewRouter()
	var got string
	mux.Get("/assets", func(w http.ResponseWriter, r *http.Request) {
		got = routePatternOrPath(r)
	})
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assets", nil))
	if got != "/assets" {
		t.Fatalf("pattern=%q", got)
	}
}

func TestStatusRecorderCapturesCode(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, status: 200}
	sr.WriteHeader(http.StatusTeapot)
	if sr.status != http.StatusTeapot || rec.Code != http.StatusTeapot {
		t.Fatalf("status=%d rec=%d", sr.status, rec.Code)
	}
}

func TestItoa(t *testing.T) {
	cases := map[int]string{0: "0", 200: "200", 404: "404", 503: "503"}
	for in, want := range cases {
		if got := itoa(in); got != want {
			t.Fatalf("itoa(%d)=%q", in, got)
		}
	}
}

func TestIncrementBackpressureDefaultsReason(t *testing.T) {
	// Must not panic with an empty reason label.
	IncrementBackpressure("")
	IncrementBackpressure("single_flight")
}
