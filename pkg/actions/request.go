package actions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/blackcoderx/barrage/pkg/config"
	"github.com/blackcoderx/barrage/pkg/interpolate"
	"github.com/blackcoderx/barrage/pkg/pool"
	"github.com/blackcoderx/barrage/pkg/runctx"
)

// Benchmarks written for drill expect this exact default User-Agent, so
// plans ported over keep hitting the same server-side allowlists.
const defaultUserAgent = "drill"

// Request performs one (or, with a WithItems source, many) HTTP calls,
// recording a Report per call and optionally assigning the last response
// into the context for downstream actions.
type Request struct {
	Name    string
	Base    string // optional, names an entry in context["urls"]
	Method  string
	URL     string
	Headers map[string]string
	Body    string
	Assign  string // optional
	Timeout string // optional, seconds, interpolatable

	WithItems *WithItems // optional
}

// Execute runs the request once per resolved with_items entry (or exactly
// once if there is no with_items source), appending one Report per call.
// A transport-level failure (connection refused, timeout, DNS failure) is
// recorded as a Report with status 520 rather than aborting the run; only
// a malformed URL, a missing url base, an invalid timeout value, or an
// unresolved interpolation is fatal.
func (r *Request) Execute(ctx context.Context, rc runctx.Context, reports *[]Report, p *pool.Pool, cfg *config.Config) error {
	var items []interface{}
	if r.WithItems != nil {
		resolved, err := r.WithItems.Resolve()
		if err != nil {
			return fmt.Errorf("request %q: %w", r.Name, err)
		}
		items = resolved
	} else {
		items = []interface{}{nil}
	}

	for idx, item := range items {
		itemCtx := rc
		if r.WithItems != nil {
			itemCtx = rc.Clone()
			itemCtx["item"] = item
			itemCtx["item_index"] = idx
		}

		report, err := r.executeOne(ctx, itemCtx, rc, p, cfg)
		if err != nil {
			return fmt.Errorf("request %q: %w", r.Name, err)
		}
		*reports = append(*reports, report)
	}
	return nil
}

// executeOne runs a single HTTP call. itemCtx is used for interpolation
// (it may carry item/item_index); outerCtx is the iteration-level context
// that cookies and the assign result are written back into, so with_items
// requests still share one cookie jar and the final assign wins.
func (r *Request) executeOne(ctx context.Context, itemCtx runctx.Context, outerCtx runctx.Context, p *pool.Pool, cfg *config.Config) (Report, error) {
	interp := interpolate.New(itemCtx, cfg.RelaxedInterpolations)

	joinedURL := r.URL
	if r.Base != "" {
		base, err := lookupURLBase(itemCtx, r.Base)
		if err != nil {
			return Report{}, fmt.Errorf("request %q: %w", r.Name, err)
		}
		joinedURL = joinURL(base, r.URL)
	}

	fullURL, err := interp.Resolve(joinedURL)
	if err != nil {
		return Report{}, err
	}

	parsed, err := url.Parse(fullURL)
	if err != nil {
		return Report{}, fmt.Errorf("invalid url %q: %w", fullURL, err)
	}

	domainKey := pool.DomainKey(parsed)
	client := p.Get(domainKey)

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	var bodyText string
	if isBodyMethod(method) && r.Body != "" {
		bodyText, err = interp.Resolve(r.Body)
		if err != nil {
			return Report{}, err
		}
		bodyReader = strings.NewReader(bodyText)
	}

	req, err := http.NewRequestWithContext(ctx, method, parsed.String(), bodyReader)
	if err != nil {
		return Report{}, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("User-Agent", defaultUserAgent)
	if cookieHeader := encodeCookies(outerCtx); cookieHeader != "" {
		req.Header.Set("Cookie", cookieHeader)
	}
	for k, v := range r.Headers {
		resolvedV, err := interp.Resolve(v)
		if err != nil {
			return Report{}, err
		}
		req.Header.Set(k, resolvedV)
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if timeout, ok, err := r.resolveTimeout(interp); err != nil {
		return Report{}, err
	} else if ok {
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
		req = req.WithContext(reqCtx)
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)

	report := Report{Name: r.Name, Duration: durationValue(elapsed, cfg.Nanosec)}

	if err != nil {
		report.Status = 520
		return report, nil
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)
	report.Status = uint16(resp.StatusCode)

	for _, sc := range resp.Header.Values("Set-Cookie") {
		if name, value, ok := parseSetCookie(sc); ok {
			outerCtx.SetCookie(name, value)
		}
	}

	if r.Assign != "" {
		headers := map[string]string{}
		for k := range resp.Header {
			headers[k] = resp.Header.Get(k)
		}
		outerCtx[r.Assign] = assignedRequest(resp.StatusCode, bodyBytes, headers)
	}

	return report, nil
}

func (r *Request) resolveTimeout(interp *interpolate.Interpolator) (time.Duration, bool, error) {
	if r.Timeout == "" {
		return 0, false, nil
	}
	resolved, err := interp.Resolve(r.Timeout)
	if err != nil {
		return 0, false, err
	}
	seconds, err := strconv.ParseFloat(resolved, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid timeout %q: %w", resolved, err)
	}
	return time.Duration(seconds * float64(time.Second)), true, nil
}

// lookupURLBase resolves context["urls"][name] to its raw (uninterpolated)
// base URL string. A missing base entry is a fatal configuration error.
func lookupURLBase(rc runctx.Context, name string) (string, error) {
	raw, ok := rc["urls"]
	if ok {
		if m, ok := raw.(map[string]interface{}); ok {
			if v, ok := m[name]; ok {
				if s, ok := v.(string); ok {
					return s, nil
				}
			}
		}
	}
	return "", fmt.Errorf("no such url base %q", name)
}

// joinURL performs a filesystem-style path join of a url base and a
// request's relative path, before either side is interpolated.
func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	if path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func isBodyMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// durationValue renders an elapsed duration in the unit the report should
// carry: nanoseconds when --nanosec is set, milliseconds otherwise.
func durationValue(d time.Duration, nanosec bool) float64 {
	if nanosec {
		return float64(d.Nanoseconds())
	}
	return float64(d.Microseconds()) / 1000.0
}

// encodeCookies serializes the context's cookie jar as a single
// "k=v; k=v" Cookie header value.
func encodeCookies(rc runctx.Context) string {
	raw, ok := rc["cookies"]
	if !ok {
		return ""
	}
	jar, ok := raw.(map[string]string)
	if !ok || len(jar) == 0 {
		return ""
	}
	parts := make([]string, 0, len(jar))
	for k, v := range jar {
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	return strings.Join(parts, "; ")
}

// parseSetCookie extracts the name/value pair from a Set-Cookie header,
// ignoring attributes like Path/Expires/HttpOnly.
func parseSetCookie(header string) (string, string, bool) {
	first := strings.SplitN(header, ";", 2)[0]
	kv := strings.SplitN(first, "=", 2)
	if len(kv) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1]), true
}
