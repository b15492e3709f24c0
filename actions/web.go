package actions

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/martinemde/agentic/agentloop"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBytes   = 2 << 20
	defaultWebMaxChars = 8000
)

// Web issues plain HTTP requests on the agent's behalf.
type Web struct {
	client   *http.Client
	maxChars int
}

// WebOption configures a Web bundle.
type WebOption func(*Web)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) WebOption {
	return func(w *Web) { w.client = c }
}

// WithMaxChars caps the text returned from a response.
func WithMaxChars(n int) WebOption {
	return func(w *Web) { w.maxChars = n }
}

// NewWeb creates a Web bundle. A zero timeout uses 30s.
func NewWeb(timeout time.Duration, opts ...WebOption) *Web {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	w := &Web{
		client:   &http.Client{Timeout: timeout},
		maxChars: defaultWebMaxChars,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Actions returns http_get and http_post.
func (w *Web) Actions() []agentloop.Action {
	return []agentloop.Action{
		{
			Name:        "http_get",
			Description: "Sends a GET request to url and returns the response text.",
			Params:      []agentloop.Param{agentloop.Required("url")},
			Func:        w.get,
		},
		{
			Name:        "http_post",
			Description: "Sends a POST request with data to url and returns the response text.",
			Params:      []agentloop.Param{agentloop.Required("url"), agentloop.Optional("data", nil)},
			Func:        w.post,
		},
	}
}

func (w *Web) get(ctx context.Context, args agentloop.Args) (any, error) {
	target, err := args.RequireString("url")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return w.do(req)
}

func (w *Web) post(ctx context.Context, args agentloop.Args) (any, error) {
	target, err := args.RequireString("url")
	if err != nil {
		return nil, err
	}

	var body io.Reader
	contentType := "text/plain; charset=utf-8"
	switch data := args["data"].(type) {
	case nil:
	case map[string]any:
		form := url.Values{}
		for k, v := range data {
			form.Set(k, fmt.Sprint(v))
		}
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case string:
		body = strings.NewReader(data)
	default:
		body = strings.NewReader(fmt.Sprint(data))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	return w.do(req)
}

func (w *Web) do(req *http.Request) (any, error) {
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s %s: %s", req.Method, req.URL, resp.Status)
	}

	text := string(data)
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		text = VisibleText(text)
	}
	return agentloop.TruncateOutput(text, w.maxChars, agentloop.TruncateHeadTail), nil
}

var skippedTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"head":     true,
	"template": true,
	"svg":      true,
}

// VisibleText reduces an HTML document to its visible text, one block per
// line. Malformed markup yields whatever text was parsed.
func VisibleText(doc string) string {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return doc
	}

	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTags[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				lines = append(lines, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return strings.Join(lines, "\n")
}
