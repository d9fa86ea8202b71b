// Package identity establishes the opaque user id that scopes remote
// favorites. The id comes from an anonymous sign-up exchange and is cached for
// the lifetime of the process.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"weatherapp/internal/models"
)

const DefaultEndpoint = "https://identitytoolkit.googleapis.com/v1/accounts:signUp"

// Bootstrapper performs one anonymous sign-up exchange.
type Bootstrapper interface {
	Bootstrap(ctx context.Context) (string, error)
}

// bootstrapTimeout bounds one shared exchange, independent of any caller.
const bootstrapTimeout = 30 * time.Second

// Provider hands out the cached id, running at most one bootstrap at a time.
type Provider struct {
	bootstrapper Bootstrapper
	timeout      time.Duration

	mu     sync.RWMutex
	userID string
	group  singleflight.Group
}

func NewProvider(b Bootstrapper) *Provider {
	return &Provider{bootstrapper: b, timeout: bootstrapTimeout}
}

// EnsureIdentity returns the cached id or establishes one. Concurrent callers
// share a single in-flight exchange, which does not inherit any caller's
// cancellation: a caller whose ctx ends gets its own error while the exchange
// keeps running for the others. Failures are not cached; the next call tries
// again.
func (p *Provider) EnsureIdentity(ctx context.Context) (string, error) {
	if id, ok := p.cached(); ok {
		return id, nil
	}

	ch := p.group.DoChan("bootstrap", func() (any, error) {
		if id, ok := p.cached(); ok {
			return id, nil
		}
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		id, err := p.bootstrapper.Bootstrap(bctx)
		if err != nil {
			if !errors.Is(err, models.ErrIdentityUnavailable) {
				err = fmt.Errorf("%w: %w", models.ErrIdentityUnavailable, err)
			}
			return "", err
		}
		if id == "" {
			return "", fmt.Errorf("%w: empty user id", models.ErrIdentityUnavailable)
		}

		p.mu.Lock()
		p.userID = id
		p.mu.Unlock()
		log.Printf("Established anonymous identity %s", id)
		return id, nil
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", models.ErrIdentityUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			if res.Shared {
				log.Printf("Shared identity bootstrap failed: %v", res.Err)
			}
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (p *Provider) cached() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.userID, p.userID != ""
}

// HTTPBootstrapper signs up an anonymous account against an identity toolkit
// style endpoint.
type HTTPBootstrapper struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

func NewHTTPBootstrapper(endpoint, apiKey string, timeout time.Duration) *HTTPBootstrapper {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPBootstrapper{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		apiKey:     apiKey,
	}
}

type signUpRequest struct {
	ReturnSecureToken bool `json:"returnSecureToken"`
}

type signUpResponse struct {
	LocalID string `json:"localId"`
	IDToken string `json:"idToken"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (b *HTTPBootstrapper) Bootstrap(ctx context.Context) (string, error) {
	u, err := url.Parse(b.endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: parse endpoint: %w", models.ErrIdentityUnavailable, err)
	}
	if b.apiKey != "" {
		q := u.Query()
		q.Set("key", b.apiKey)
		u.RawQuery = q.Encode()
	}

	body, err := json.Marshal(signUpRequest{ReturnSecureToken: true})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", models.ErrIdentityUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrIdentityUnavailable, err)
	}
	defer resp.Body.Close()

	var out signUpResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && out.Error != nil {
			return "", fmt.Errorf("%w: sign-up rejected (HTTP %d): %s", models.ErrIdentityUnavailable, resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("%w: sign-up rejected (HTTP %d)", models.ErrIdentityUnavailable, resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: decode response: %w", models.ErrIdentityUnavailable, decodeErr)
	}
	if out.LocalID == "" {
		return "", fmt.Errorf("%w: response carried no user id", models.ErrIdentityUnavailable)
	}
	return out.LocalID, nil
}
