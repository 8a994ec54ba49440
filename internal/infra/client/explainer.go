// Package client holds HTTP clients for sidecar services.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cardpilot/cardpilot-go/internal/domain"
	"github.com/cardpilot/cardpilot-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// ExplainerClient calls the LLM explainer sidecar, which turns a
// recommendation result into user-facing prose.
type ExplainerClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewExplainerClient creates a new ExplainerClient.
func NewExplainerClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *ExplainerClient {
	return &ExplainerClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
	}
}

// Explain sends the recommendation result to the sidecar and returns its
// prose explanation.
func (c *ExplainerClient) Explain(ctx context.Context, req *domain.ExplainerRequest) (*domain.ExplainerResponse, error) {
	ctx, span := tracer.Start(ctx, "ExplainerClient.Explain")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", req.UserID))

	var explainerResp domain.ExplainerResponse

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(req)
			if err != nil {
				return err
			}

			url := fmt.Sprintf("%s/v1/explanations", c.baseURL)
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return err
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				err := fmt.Errorf("explainer API returned status %d", resp.StatusCode)
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					return &resilience.Permanent{Err: err}
				}
				return err
			}

			return json.NewDecoder(resp.Body).Decode(&explainerResp)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &explainerResp, nil
	})

	if err != nil {
		return nil, &domain.ErrExternalService{Service: "explainer", Err: err}
	}

	return result.(*domain.ExplainerResponse), nil
}
