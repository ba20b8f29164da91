package display

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/energymatrix/pkg/common"
	"github.com/raterudder/energymatrix/pkg/log"
)

// ErrSend is returned when the display could not be reached or rejected the
// payload.
var ErrSend = errors.New("display send failed")

// Sink receives the rendered blocks.
type Sink interface {
	Send(ctx context.Context, blocks []Block) error
}

var _ Sink = (*Awtrix)(nil)

// Awtrix sends blocks to the custom-app endpoint of an AWTRIX clock.
type Awtrix struct {
	baseURL string
	app     string
	client  *http.Client
}

// Configured sets up the AWTRIX sink and the block builder based on flags.
func Configured() (*Awtrix, *Builder) {
	a := &Awtrix{}
	b := &Builder{}
	baseURL := lflag.String("awtrix-url", "http://192.168.178.143", "Base URL of the AWTRIX clock")
	app := lflag.String("awtrix-app", "solar", "Name of the custom app to update")
	timeout := lflag.Duration("awtrix-timeout", 5*time.Second, "Timeout for requests to the clock")
	lifetime := lflag.Duration("display-lifetime", 5*time.Minute, "Lifetime of the pages on the clock")

	lflag.Do(func() {
		a.baseURL = *baseURL
		a.app = *app
		a.client = common.HTTPClient(*timeout)
		b.Lifetime = *lifetime
		if err := a.Validate(); err != nil {
			panic(fmt.Sprintf("awtrix validation failed: %v", err))
		}
	})

	return a, b
}

// Validate ensures the configuration is valid.
func (a *Awtrix) Validate() error {
	if a.baseURL == "" {
		return errors.New("awtrix-url is required")
	}
	if _, err := url.Parse(a.baseURL); err != nil {
		return fmt.Errorf("failed to parse awtrix url (%s): %w", a.baseURL, err)
	}
	if a.app == "" {
		return errors.New("awtrix-app is required")
	}
	return nil
}

func (a *Awtrix) endpoint() (string, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return "", err
	}
	u = u.JoinPath("api", "custom")
	q := u.Query()
	q.Set("name", a.app)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Send implements Sink.
func (a *Awtrix) Send(ctx context.Context, blocks []Block) error {
	body, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("%w: failed to encode blocks: %w", ErrSend, err)
	}
	endpoint, err := a.endpoint()
	if err != nil {
		return fmt.Errorf("%w: invalid url: %w", ErrSend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %w", ErrSend, err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Ctx(ctx).DebugContext(ctx, "sending to awtrix", slog.String("url", endpoint), slog.Int("blocks", len(blocks)))

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSend, endpoint, err)
	}
	defer resp.Body.Close()
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned status %d", ErrSend, endpoint, resp.StatusCode)
	}
	return nil
}
