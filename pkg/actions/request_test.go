package actions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/blackcoderx/barrage/pkg/config"
	"github.com/blackcoderx/barrage/pkg/pool"
	"github.com/blackcoderx/barrage/pkg/runctx"
)

func TestRequestSingleGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req := &Request{Name: "ping", URL: srv.URL + "/api"}
	rc := runctx.New(nil, nil, 0)
	var reports []Report

	if err := req.Execute(context.Background(), rc, &reports, pool.New(0, false), &config.Config{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected exactly one report, got %d", len(reports))
	}
	if reports[0].Status != 200 {
		t.Fatalf("expected status 200, got %d", reports[0].Status)
	}
	if reports[0].Name != "ping" {
		t.Fatalf("expected report named after the plan item, got %q", reports[0].Name)
	}
	if reports[0].Duration <= 0 {
		t.Fatalf("expected a positive duration, got %v", reports[0].Duration)
	}
}

func TestRequestAssignCapturesStatusHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"a":1}`))
	}))
	defer srv.Close()

	req := &Request{Name: "fetch", URL: srv.URL + "/x", Assign: "r"}
	rc := runctx.New(nil, nil, 0)
	var reports []Report
	cfg := &config.Config{}

	if err := req.Execute(context.Background(), rc, &reports, pool.New(0, false), cfg); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	assigned, ok := rc["r"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected an assigned map under r, got %T", rc["r"])
	}
	if assigned["status"] != 200 {
		t.Fatalf("expected assigned status 200, got %v", assigned["status"])
	}
	body, ok := assigned["body"].(map[string]interface{})
	if !ok || body["a"] != float64(1) {
		t.Fatalf("expected parsed JSON body with a=1, got %v", assigned["body"])
	}
	headers, ok := assigned["headers"].(map[string]string)
	if !ok || headers["Content-Type"] != "application/json" {
		t.Fatalf("expected captured response headers, got %v", assigned["headers"])
	}
	if int(reports[0].Status) != assigned["status"] {
		t.Fatalf("report status %d and assigned status %v must agree", reports[0].Status, assigned["status"])
	}

	// A later assert in the same iteration sees the captured response.
	check := &Assert{Name: "check", Key: "r.status", Value: 200}
	if err := check.Execute(context.Background(), rc, &reports, pool.New(0, false), cfg); err != nil {
		t.Fatalf("assert on assigned status should pass: %v", err)
	}
}

func TestRequestNonJSONBodyAssignsNull(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	req := &Request{Name: "page", URL: srv.URL, Assign: "r"}
	rc := runctx.New(nil, nil, 0)
	var reports []Report

	if err := req.Execute(context.Background(), rc, &reports, pool.New(0, false), &config.Config{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	assigned := rc["r"].(map[string]interface{})
	if assigned["body"] != nil {
		t.Fatalf("expected non-JSON body to be stored as null, got %v", assigned["body"])
	}
}

func TestRequestCookiePropagation(t *testing.T) {
	var secondCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			w.Header().Add("Set-Cookie", "s=abc; Path=/; HttpOnly")
		case "/next":
			secondCookie = r.Header.Get("Cookie")
		}
	}))
	defer srv.Close()

	rc := runctx.New(nil, nil, 0)
	p := pool.New(0, false)
	cfg := &config.Config{}
	var reports []Report

	login := &Request{Name: "login", URL: srv.URL + "/login"}
	if err := login.Execute(context.Background(), rc, &reports, p, cfg); err != nil {
		t.Fatalf("login: %v", err)
	}
	next := &Request{Name: "next", URL: srv.URL + "/next"}
	if err := next.Execute(context.Background(), rc, &reports, p, cfg); err != nil {
		t.Fatalf("next: %v", err)
	}
	if !strings.Contains(secondCookie, "s=abc") {
		t.Fatalf("expected the second request to carry the first response's cookie, got %q", secondCookie)
	}

	// A fresh iteration starts with an empty jar.
	freshRC := runctx.New(nil, nil, 1)
	secondCookie = ""
	if err := next.Execute(context.Background(), freshRC, &reports, p, cfg); err != nil {
		t.Fatalf("next (fresh iteration): %v", err)
	}
	if secondCookie != "" {
		t.Fatalf("cookies must not leak across iterations, got %q", secondCookie)
	}
}

func TestRequestTransportFailureRecordedAndPlanContinues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	rc := runctx.New(nil, nil, 0)
	p := pool.New(0, false)
	cfg := &config.Config{}
	var reports []Report

	// Port 1 is never listening; the dial fails immediately.
	dead := &Request{Name: "dead", URL: "http://127.0.0.1:1/unreachable"}
	if err := dead.Execute(context.Background(), rc, &reports, p, cfg); err != nil {
		t.Fatalf("a transport failure must not abort the run: %v", err)
	}
	live := &Request{Name: "live", URL: srv.URL}
	if err := live.Execute(context.Background(), rc, &reports, p, cfg); err != nil {
		t.Fatalf("live: %v", err)
	}

	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].Status != 520 {
		t.Fatalf("expected transport-failure sentinel 520, got %d", reports[0].Status)
	}
	if reports[1].Status != 201 {
		t.Fatalf("expected the second request's real status, got %d", reports[1].Status)
	}
}

func TestRequestWithItemsPickShuffle(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
	}))
	defer srv.Close()

	req := &Request{
		Name: "sweep",
		URL:  srv.URL + "/u/{{ item.id }}",
		WithItems: &WithItems{
			Items: []interface{}{
				map[string]interface{}{"id": 1},
				map[string]interface{}{"id": 2},
				map[string]interface{}{"id": 3},
			},
			Shuffle: true,
			HasPick: true,
			Pick:    2,
		},
	}
	rc := runctx.New(nil, nil, 0)
	var reports []Report

	if err := req.Execute(context.Background(), rc, &reports, pool.New(0, false), &config.Config{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("pick 2 must produce exactly 2 requests, got %d", len(reports))
	}
	if len(paths) != 2 || paths[0] == paths[1] {
		t.Fatalf("expected two distinct item paths, got %v", paths)
	}
	for _, p := range paths {
		if p != "/u/1" && p != "/u/2" && p != "/u/3" {
			t.Fatalf("unexpected path %q", p)
		}
	}
}

func TestRequestBaseJoinsAgainstNamedURL(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	rc := runctx.New(nil, map[string]string{"api": srv.URL + "/v1/"}, 0)
	req := &Request{Name: "health", Base: "api", URL: "/health"}
	var reports []Report

	if err := req.Execute(context.Background(), rc, &reports, pool.New(0, false), &config.Config{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotPath != "/v1/health" {
		t.Fatalf("expected the base path joined with the relative url, got %q", gotPath)
	}
}

func TestRequestMissingBaseIsFatal(t *testing.T) {
	rc := runctx.New(nil, nil, 0)
	req := &Request{Name: "health", Base: "nope", URL: "/health"}
	var reports []Report

	if err := req.Execute(context.Background(), rc, &reports, pool.New(0, false), &config.Config{}); err == nil {
		t.Fatal("expected a missing url base to be a fatal configuration error")
	}
}

func TestRequestBodyOnlyForWriteMethods(t *testing.T) {
	var gotBody string
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		gotMethod = r.Method
	}))
	defer srv.Close()

	rc := runctx.New(map[string]interface{}{"user": "alice"}, nil, 0)
	req := &Request{
		Name:   "create",
		Method: "POST",
		URL:    srv.URL,
		Body:   `{"name":"{{ global.user }}"}`,
	}
	var reports []Report

	if err := req.Execute(context.Background(), rc, &reports, pool.New(0, false), &config.Config{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotMethod != "POST" {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotBody != `{"name":"alice"}` {
		t.Fatalf("expected the interpolated body, got %q", gotBody)
	}
}
