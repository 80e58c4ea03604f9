// Package discovery resolves the downstream service's base URL. The common
// deployment pins one URL via configuration; clusters that register the
// downstream in Consul can resolve a healthy instance per request instead.
package discovery

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"

	consulapi "github.com/hashicorp/consul/api"
)

// Resolver yields the base URL to forward authorized traffic to.
type Resolver interface {
	Resolve(ctx context.Context) (*url.URL, error)
}

// StaticResolver always returns the configured base URL.
type StaticResolver struct {
	target *url.URL
}

// NewStaticResolver parses and pins the downstream base URL.
func NewStaticResolver(rawURL string) (*StaticResolver, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("discovery: invalid downstream url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("discovery: downstream url %q must be absolute", rawURL)
	}
	return &StaticResolver{target: u}, nil
}

func (s *StaticResolver) Resolve(context.Context) (*url.URL, error) {
	u := *s.target
	return &u, nil
}

// ConsulResolver picks a healthy instance of the named service from Consul,
// load-balancing randomly across instances.
type ConsulResolver struct {
	client  *consulapi.Client
	service string
}

// NewConsulResolver creates a resolver against the given Consul agent.
func NewConsulResolver(addr, token, service string) (*ConsulResolver, error) {
	cfg := consulapi.DefaultConfig()
	cfg.Address = addr
	if token != "" {
		cfg.Token = token
	}

	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("discovery: consul client: %w", err)
	}
	return &ConsulResolver{client: client, service: service}, nil
}

func (c *ConsulResolver) Resolve(ctx context.Context) (*url.URL, error) {
	opts := (&consulapi.QueryOptions{}).WithContext(ctx)
	entries, _, err := c.client.Health().Service(c.service, "", true, opts)
	if err != nil {
		return nil, fmt.Errorf("discovery: consul lookup for %s: %w", c.service, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("discovery: no healthy instances for %s", c.service)
	}

	entry := entries[rand.Intn(len(entries))]
	addr := entry.Service.Address
	if addr == "" {
		addr = entry.Node.Address
	}

	return &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", addr, entry.Service.Port),
	}, nil
}
