package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tullo/relay/internal/auth"
	"github.com/tullo/relay/internal/metrics"
	"github.com/tullo/relay/internal/models"
)

// Forwarder delivers a purchase notification to the alert gateway.
type Forwarder interface {
	Forward(ctx context.Context, req models.PurchaseAlertRequest) error
}

// LocalForwarder hands purchases to an in-process AlertService.
type LocalForwarder struct {
	alerts *AlertService
}

func NewLocalForwarder(alerts *AlertService) *LocalForwarder {
	return &LocalForwarder{alerts: alerts}
}

func (f *LocalForwarder) Forward(ctx context.Context, req models.PurchaseAlertRequest) error {
	_, err := f.alerts.Record(ctx, req)
	return err
}

// HTTPForwarder posts purchases to a remote gateway's /alerts/purchase endpoint.
type HTTPForwarder struct {
	client *resty.Client
	tokens *auth.ServiceTokens
}

// NewHTTPForwarder creates a forwarder for the gateway at baseURL. tokens may be nil
// when the gateway does not require service authentication.
func NewHTTPForwarder(baseURL string, timeout time.Duration, tokens *auth.ServiceTokens) *HTTPForwarder {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &HTTPForwarder{client: client, tokens: tokens}
}

func (f *HTTPForwarder) Forward(ctx context.Context, req models.PurchaseAlertRequest) error {
	r := f.client.R().SetContext(ctx).SetBody(req)

	if f.tokens != nil {
		token, err := f.tokens.GenerateToken(auth.ForwarderSubject, auth.ScopeAlertsWrite)
		if err != nil {
			return fmt.Errorf("failed to mint service token: %w", err)
		}
		r.SetAuthToken(token)
	}

	resp, err := r.Post("/alerts/purchase")
	if err != nil {
		return fmt.Errorf("failed to post purchase alert: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("alert gateway responded %d", resp.StatusCode())
	}
	return nil
}

// AsyncForwarder runs forwards in the background with their own timeout so the
// webhook acknowledgment never waits on them. Failures are logged.
type AsyncForwarder struct {
	next    Forwarder
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncForwarder(next Forwarder, timeout time.Duration) *AsyncForwarder {
	return &AsyncForwarder{next: next, timeout: timeout}
}

// Go starts forwarding req and returns immediately.
func (a *AsyncForwarder) Go(req models.PurchaseAlertRequest) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.next.Forward(ctx, req); err != nil {
			metrics.ForwardFailuresTotal.Inc()
			log.Printf("ERROR failed to forward purchase alert for order %s: %v", req.OrderID, err)
			return
		}
		log.Printf("INFO purchase alert forwarded for order %s", req.OrderID)
	}()
}

// Wait blocks until all started forwards finish.
func (a *AsyncForwarder) Wait() {
	a.wg.Wait()
}
