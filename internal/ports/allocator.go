// internal/ports/allocator.go
package ports

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"infradash/internal/database"
)

const (
	MinPort = database.MinPort
	MaxPort = database.MaxPort

	DefaultStart = 3000
	DefaultEnd   = 65535
)

var ErrExhaustedRange = errors.New("no available ports in the specified range")

// DefaultReserved are well-known ports never handed out by GenerateUniquePort.
var DefaultReserved = []int{22, 80, 443, 3306, 5432, 6379, 8080, 8443}

// Recorder receives allocation outcomes, e.g. for metrics.
type Recorder interface {
	RecordAllocation(outcome string)
}

// Outcomes passed to Recorder.
const (
	OutcomeAllocated = "allocated"
	OutcomeExhausted = "exhausted"
	OutcomeError     = "error"
)

// Allocator hands out ports that are free on a host. It keeps no state of
// its own; every call reads the services collection.
type Allocator struct {
	services *database.ServiceCollection
	reserved map[int]bool
	start    int
	end      int
	recorder Recorder
}

type Option func(*Allocator)

// WithReserved replaces the reserved port set.
func WithReserved(ports ...int) Option {
	return func(a *Allocator) {
		a.reserved = make(map[int]bool, len(ports))
		for _, p := range ports {
			a.reserved[p] = true
		}
	}
}

// WithDefaultRange changes the range used by GenerateDefault.
func WithDefaultRange(start, end int) Option {
	return func(a *Allocator) { a.start, a.end = start, end }
}

func WithRecorder(r Recorder) Option {
	return func(a *Allocator) { a.recorder = r }
}

func New(services *database.ServiceCollection, opts ...Option) *Allocator {
	a := &Allocator{services: services, start: DefaultStart, end: DefaultEnd}
	WithReserved(DefaultReserved...)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Reserved returns the reserved ports in ascending order.
func (a *Allocator) Reserved() []int {
	out := make([]int, 0, len(a.reserved))
	for p := range a.reserved {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// GenerateDefault is GenerateUniquePort over the default range.
func (a *Allocator) GenerateDefault(ctx context.Context, hostID string) (int, error) {
	return a.GenerateUniquePort(ctx, hostID, a.start, a.end)
}

// GenerateUniquePort returns the lowest port in [start, end] that no service
// on hostID uses and that is not reserved. The bounds are clamped to
// MinPort-MaxPort; an empty interval is exhausted.
func (a *Allocator) GenerateUniquePort(ctx context.Context, hostID string, start, end int) (int, error) {
	if start < MinPort {
		start = MinPort
	}
	if end > MaxPort {
		end = MaxPort
	}
	if start > end {
		a.record(OutcomeExhausted)
		return 0, ErrExhaustedRange
	}

	used, err := a.usedSet(ctx, hostID)
	if err != nil {
		a.record(OutcomeError)
		return 0, err
	}

	for port := start; port <= end; port++ {
		if !used[port] && !a.reserved[port] {
			a.record(OutcomeAllocated)
			return port, nil
		}
	}
	a.record(OutcomeExhausted)
	return 0, ErrExhaustedRange
}

// IsPortAvailable reports whether no service on hostID uses port. Reserved
// ports are not considered.
func (a *Allocator) IsPortAvailable(ctx context.Context, hostID string, port int) (bool, error) {
	svc, err := a.services.FindFirst(ctx, database.Where{
		database.Eq("hostId", hostID),
		database.Eq("port", port),
	})
	if err != nil {
		return false, err
	}
	return svc == nil, nil
}

// UsedPorts returns the ports in use on hostID, ascending and de-duplicated.
func (a *Allocator) UsedPorts(ctx context.Context, hostID string) ([]int, error) {
	used, err := a.usedSet(ctx, hostID)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(used))
	for p := range used {
		out = append(out, p)
	}
	sort.Ints(out)
	return out, nil
}

func (a *Allocator) usedSet(ctx context.Context, hostID string) (map[int]bool, error) {
	recs, err := a.services.Select(ctx,
		database.Query{Where: database.Where{database.Eq("hostId", hostID)}},
		database.Select{"port": true},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load used ports: %w", err)
	}
	used := make(map[int]bool, len(recs))
	for _, r := range recs {
		if p, ok := r["port"].(int); ok {
			used[p] = true
		}
	}
	return used, nil
}

func (a *Allocator) record(outcome string) {
	if a.recorder != nil {
		a.recorder.RecordAllocation(outcome)
	}
}
