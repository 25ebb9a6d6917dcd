package dashboard

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Resource codes served by the dashboard.
const (
	ResourceUsers    = "users"
	ResourceSales    = "sales"
	ResourceActivity = "activity"
)

// ResourceFunc loads a resource for an authenticated session.
type ResourceFunc func(ctx context.Context, session Session) (any, error)

// Resource describes one cached data source.
type Resource struct {
	Code      string
	StaleTime time.Duration
	Fetch     ResourceFunc
}

// Registry holds the resources known to a service.
type Registry struct {
	mu        sync.RWMutex
	resources map[string]Resource
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{resources: map[string]Resource{}}
}

// Register stores or replaces a resource.
func (r *Registry) Register(res Resource) error {
	if res.Code == "" {
		return fmt.Errorf("resource code is required")
	}
	if res.Fetch == nil {
		return fmt.Errorf("resource %s: fetch function is required", res.Code)
	}
	if res.StaleTime < 0 {
		return fmt.Errorf("resource %s: stale time cannot be negative", res.Code)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[res.Code] = res
	return nil
}

// Resource fetches a resource by code.
func (r *Registry) Resource(code string) (Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[code]
	return res, ok
}

// Codes returns the registered codes in sorted order.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.resources))
	for code := range r.resources {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return codes
}
