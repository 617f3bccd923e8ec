package helpers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// NewESClient creates an Elasticsearch client with short timeouts and
// optional basic auth, and pings it once so a dead cluster is reported at
// startup instead of on the first search.
func NewESClient(ctx context.Context, addrs []string, username, password string) (*elasticsearch.Client, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("elasticsearch: no addresses configured")
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  addrs,
		Username:   username,
		Password:   password,
		MaxRetries: 2,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 5 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	})
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := es.Ping(es.Ping.WithContext(c))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch ping: %w", err)
	}
	_ = res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch ping: %s", res.Status())
	}
	return es, nil
}
