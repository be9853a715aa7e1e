package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/machinebox/graphql"

	"github.com/PizzaHomicide/vidbridge/internal/log"
	"github.com/PizzaHomicide/vidbridge/internal/version"
)

// Client is the generic catalog client for making queries to a catalog's graphql API
type Client struct {
	client    *graphql.Client
	authToken string
}

func NewClient(endpoint, authToken string) (*Client, error) {
	if endpoint == "" {
		log.Error("Catalog client endpoint is empty.")
		return nil, fmt.Errorf("catalog endpoint is empty")
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	return &Client{
		client:    graphql.NewClient(endpoint, graphql.WithHTTPClient(httpClient)),
		authToken: authToken,
	}, nil
}

func (c *Client) Query(ctx context.Context, query string, variables map[string]interface{}, result interface{}) error {
	req := graphql.NewRequest(query)
	req.Header.Set("User-Agent", version.UserAgent())

	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	for key, value := range variables {
		req.Var(key, value)
	}

	if err := c.client.Run(ctx, req, result); err != nil {
		if isNetworkError(err) {
			return NetworkError{Err: err}
		}
		return err
	}
	return nil
}

type NetworkError struct {
	Err error
}

func (e NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e NetworkError) Unwrap() error {
	return e.Err
}

func isNetworkError(err error) bool {
	var netErr *url.Error
	return errors.As(err, &netErr) && (netErr.Timeout() ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "no such host") ||
		strings.Contains(err.Error(), "i/o timeout"))
}
