package robots

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/drugindex/internal/httpclient"
	"github.com/temoto/robotstxt"
)

// Mode selects how robots.txt is interpreted.
type Mode string

const (
	// ModeHeuristic looks for the index prefix and a matching disallow line.
	ModeHeuristic Mode = "heuristic"

	// ModeStrict parses the robots.txt grammar.
	ModeStrict Mode = "strict"
)

// DefaultTimeout bounds the robots.txt request.
const DefaultTimeout = 15 * time.Second

// ParseMode converts a flag value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeHeuristic, ModeStrict:
		return m, nil
	case "":
		return ModeHeuristic, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Getter fetches a URL. *httpclient.Client satisfies it.
type Getter interface {
	Get(ctx context.Context, rawURL string, timeout time.Duration) (*httpclient.Response, error)
}

// Gate checks the site's crawl policy.
type Gate struct {
	client     Getter
	robotsURL  string
	prefix     string
	probePath  string
	agent      string
	mode       Mode
	failClosed bool
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithMode selects heuristic or strict interpretation.
func WithMode(m Mode) Option {
	return func(g *Gate) {
		g.mode = m
	}
}

// WithFailClosed denies the crawl when robots.txt cannot be fetched.
func WithFailClosed(failClosed bool) Option {
	return func(g *Gate) {
		g.failClosed = failClosed
	}
}

// WithTimeout sets the robots.txt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithAgent sets the user agent token matched against robots.txt groups in strict mode.
func WithAgent(agent string) Option {
	return func(g *Gate) {
		if agent != "" {
			g.agent = agent
		}
	}
}

// WithProbePath sets the path tested in strict mode (e.g. "/alpha/a.html").
func WithProbePath(path string) Option {
	return func(g *Gate) {
		if path != "" {
			g.probePath = path
		}
	}
}

// WithLogger sets the logger used to report fetch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// NewGate creates a Gate for the site at baseURL guarding the given path
// prefix (e.g. "/alpha/").
func NewGate(client Getter, baseURL, prefix string, opts ...Option) (*Gate, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}
	if prefix == "" {
		prefix = "/"
	}

	robotsURL := base.ResolveReference(&url.URL{Path: "/robots.txt"})

	g := &Gate{
		client:    client,
		robotsURL: robotsURL.String(),
		prefix:    strings.ToLower(prefix),
		probePath: prefix,
		agent:     "*",
		mode:      ModeHeuristic,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g, nil
}

// RobotsURL returns the policy resource consulted by Check.
func (g *Gate) RobotsURL() string {
	return g.robotsURL
}

// Check fetches robots.txt and decides whether the crawl may proceed.
// It never returns an error: fetch failures are folded into the Decision
// according to the fail-open/fail-closed policy.
func (g *Gate) Check(ctx context.Context) Decision {
	resp, err := g.client.Get(ctx, g.robotsURL, g.timeout)
	if err != nil {
		g.logger.Warn("could not fetch robots.txt",
			"url", g.robotsURL,
			"error", err,
			"failClosed", g.failClosed,
		)
		if g.failClosed {
			err = fmt.Errorf("%w: %w", ErrRobotsUnavailable, err)
		}
		return Decision{
			Allowed:   !g.failClosed,
			Reason:    ReasonFetchFailed,
			RobotsURL: g.robotsURL,
			Err:       err,
		}
	}

	d := Decision{
		RobotsURL:  g.robotsURL,
		StatusCode: resp.StatusCode,
	}

	if g.mode == ModeStrict {
		return g.checkStrict(d, resp)
	}

	if !resp.IsSuccess() {
		d.Allowed = true
		d.Reason = ReasonNoPolicy
		return d
	}

	if Disallows(string(resp.Body), g.prefix) {
		d.Reason = ReasonDisallowed
		return d
	}
	d.Allowed = true
	d.Reason = ReasonNoRule
	return d
}

// checkStrict evaluates the parsed robots.txt grammar.
// robotstxt treats 4xx as allow-all and 5xx as disallow-all.
func (g *Gate) checkStrict(d Decision, resp *httpclient.Response) Decision {
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
	if err != nil {
		g.logger.Warn("could not parse robots.txt, treating as absent",
			"url", g.robotsURL,
			"error", err,
		)
		d.Allowed = true
		d.Reason = ReasonNoPolicy
		return d
	}

	if data.TestAgent(g.probePath, g.agent) {
		d.Allowed = true
		d.Reason = ReasonNoRule
		if resp.StatusCode >= http.StatusBadRequest {
			d.Reason = ReasonNoPolicy
		}
		return d
	}
	d.Reason = ReasonDisallowed
	return d
}

// Disallows reports whether policy text both mentions prefix and contains a
// "disallow: <prefix>" directive, compared case-insensitively.
func Disallows(policy, prefix string) bool {
	txt := strings.ToLower(policy)
	prefix = strings.ToLower(prefix)
	return strings.Contains(txt, prefix) && strings.Contains(txt, "disallow: "+prefix)
}
