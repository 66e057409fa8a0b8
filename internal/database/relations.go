// internal/database/relations.go
package database

import (
	"context"
	"fmt"
	"sort"
)

// HostCollection adds service hydration to the hosts collection.
type HostCollection struct {
	*Collection[Host, *Host]
}

// FindManyWithServices returns the matching hosts, each carrying its
// services ordered by their order field.
func (c *HostCollection) FindManyWithServices(ctx context.Context, q Query) ([]HostWithServices, error) {
	var out []HostWithServices
	err := c.store.read(ctx, c.name, "find_many", func(snap *Snapshot) error {
		out = hydrateHosts(snap, c.query(snap, q))
		return nil
	})
	return out, err
}

// FindUniqueWithServices returns the matching host with its services, or nil.
func (c *HostCollection) FindUniqueWithServices(ctx context.Context, where Where) (*HostWithServices, error) {
	var found *HostWithServices
	err := c.store.read(ctx, c.name, "find_unique", func(snap *Snapshot) error {
		if i := indexOf[Host, *Host](snap.Hosts, where); i >= 0 {
			found = &hydrateHosts(snap, snap.Hosts[i:i+1])[0]
		}
		return nil
	})
	return found, err
}

// ServiceCollection adds host hydration to the services collection.
type ServiceCollection struct {
	*Collection[Service, *Service]
}

// FindManyWithHost returns the matching services, each carrying its host.
func (c *ServiceCollection) FindManyWithHost(ctx context.Context, q Query) ([]ServiceWithHost, error) {
	var out []ServiceWithHost
	err := c.store.read(ctx, c.name, "find_many", func(snap *Snapshot) error {
		out = hydrateServices(snap, c.query(snap, q))
		return nil
	})
	return out, err
}

// FindUniqueWithHost returns the matching service with its host, or nil.
func (c *ServiceCollection) FindUniqueWithHost(ctx context.Context, where Where) (*ServiceWithHost, error) {
	var found *ServiceWithHost
	err := c.store.read(ctx, c.name, "find_unique", func(snap *Snapshot) error {
		if i := indexOf[Service, *Service](snap.Services, where); i >= 0 {
			found = &hydrateServices(snap, snap.Services[i:i+1])[0]
		}
		return nil
	})
	return found, err
}

// DeleteOrphans removes services whose hostId references no host.
func (c *ServiceCollection) DeleteOrphans(ctx context.Context) (int, error) {
	n := 0
	err := c.store.write(ctx, c.name, "delete_orphans", func(snap *Snapshot) ([]Change, error) {
		known := make(map[string]bool, len(snap.Hosts))
		for _, h := range snap.Hosts {
			known[h.ID] = true
		}
		var changes []Change
		kept := snap.Services[:0]
		for _, svc := range snap.Services {
			if known[svc.HostID] {
				kept = append(kept, svc)
				continue
			}
			changes = append(changes, Change{Collection: c.name, Action: ActionDelete, ID: svc.ID})
		}
		snap.Services = kept
		n = len(changes)
		return changes, nil
	})
	return n, err
}

// DeleteHostCascade removes the host matching where together with all of its
// services in one write. Plain Hosts().Delete leaves services in place.
func (s *Store) DeleteHostCascade(ctx context.Context, where Where) (Host, int, error) {
	var (
		removed Host
		n       int
	)
	err := s.write(ctx, HostsCollection, "delete_cascade", func(snap *Snapshot) ([]Change, error) {
		i := indexOf[Host, *Host](snap.Hosts, where)
		if i < 0 {
			return nil, fmt.Errorf("%s: %w", HostsCollection, ErrNotFound)
		}
		removed = snap.Hosts[i]
		snap.Hosts = append(snap.Hosts[:i], snap.Hosts[i+1:]...)

		changes, count := deleteMatching[Service, *Service](&snap.Services, ServicesCollection, Where{Eq("hostId", removed.ID)})
		n = count
		return append(changes, Change{Collection: HostsCollection, Action: ActionDelete, ID: removed.ID}), nil
	})
	if err != nil {
		return Host{}, 0, err
	}
	return removed, n, nil
}

func hydrateHosts(snap *Snapshot, hosts []Host) []HostWithServices {
	out := make([]HostWithServices, len(hosts))
	for i, h := range hosts {
		children := make([]Service, 0)
		for _, svc := range snap.Services {
			if svc.HostID == h.ID {
				children = append(children, svc)
			}
		}
		sort.SliceStable(children, func(a, b int) bool {
			return children[a].Order < children[b].Order
		})
		out[i] = HostWithServices{Host: h, Services: children}
	}
	return out
}

func hydrateServices(snap *Snapshot, services []Service) []ServiceWithHost {
	out := make([]ServiceWithHost, len(services))
	for i, svc := range services {
		out[i] = ServiceWithHost{Service: svc}
		for j := range snap.Hosts {
			if snap.Hosts[j].ID == svc.HostID {
				h := snap.Hosts[j]
				out[i].Host = &h
				break
			}
		}
	}
	return out
}
