// cmd/infradash-discover/plan.go
package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"infradash/internal/catalog"
	"infradash/internal/database"
	"infradash/internal/ports"
)

// Plan is what a scan would add to the dashboard.
type Plan struct {
	Hosts []PlannedHost `yaml:"hosts"`
}

type PlannedHost struct {
	Name        string           `yaml:"name"`
	IPAddress   string           `yaml:"ip_address"`
	Description string           `yaml:"description,omitempty"`
	Services    []PlannedService `yaml:"services,omitempty"`
}

type PlannedService struct {
	Name      string `yaml:"name"`
	URL       string `yaml:"url"`
	Port      int    `yaml:"port"`
	IconValue string `yaml:"icon,omitempty"`
	Category  string `yaml:"category,omitempty"`
}

// Result counts what Apply created and skipped.
type Result struct {
	HostsCreated    int
	HostsExisting   int
	ServicesCreated int
	ServicesSkipped int
}

var tlsPorts = map[int]bool{443: true, 8443: true, 9443: true, 8006: true}

func buildPlan(run *NmapRun) Plan {
	var plan Plan
	for _, host := range run.Hosts {
		if host.Status.State != "up" {
			continue
		}
		if ph, ok := planHost(host); ok {
			plan.Hosts = append(plan.Hosts, ph)
		}
	}
	return plan
}

func planHost(host Host) (PlannedHost, bool) {
	var ipv4, hostname string
	for _, addr := range host.Addresses {
		if addr.AddrType == "ipv4" {
			ipv4 = addr.Addr
			break
		}
	}
	if ipv4 == "" {
		return PlannedHost{}, false
	}
	for _, hn := range host.Hostnames {
		if hn.Type == "PTR" || hn.Type == "user" {
			hostname = hn.Name
			break
		}
	}

	ph := PlannedHost{
		Name:      hostName(ipv4, hostname),
		IPAddress: ipv4,
	}
	if len(host.OS) > 0 && host.OS[0].Name != "" {
		ph.Description = host.OS[0].Name
	}

	for _, port := range host.Ports {
		if port.State.State != "open" || port.Protocol != "tcp" {
			continue
		}
		ph.Services = append(ph.Services, planService(ipv4, port))
	}
	return ph, true
}

func planService(ip string, port Port) PlannedService {
	ps := PlannedService{
		Port: port.PortID,
		URL:  serviceURL(ip, port),
	}
	if tpl, ok := catalog.ByPort(port.PortID); ok {
		ps.Name = tpl.Name
		ps.IconValue = deref(tpl.IconValue)
		ps.Category = deref(tpl.Category)
		return ps
	}
	switch {
	case port.Service.Product != "":
		ps.Name = port.Service.Product
	case port.Service.Name != "":
		ps.Name = port.Service.Name
	default:
		ps.Name = fmt.Sprintf("Port %d", port.PortID)
	}
	return ps
}

func serviceURL(ip string, port Port) string {
	scheme := "http"
	if tlsPorts[port.PortID] || port.Service.Tunnel == "ssl" || strings.Contains(port.Service.Name, "https") {
		scheme = "https"
	}
	return scheme + "://" + ip + ":" + strconv.Itoa(port.PortID)
}

func hostName(ipv4, hostname string) string {
	if hostname != "" {
		return strings.Split(hostname, ".")[0]
	}
	parts := strings.Split(ipv4, ".")
	if len(parts) == 4 {
		return "host-" + parts[3]
	}
	return "host-" + strings.ReplaceAll(ipv4, ".", "-")
}

// Apply creates the planned hosts and services. Hosts already present (by
// IP) are reused; services whose port is taken on the host are skipped.
func Apply(ctx context.Context, store *database.Store, alloc *ports.Allocator, plan Plan) (Result, error) {
	var res Result
	for _, ph := range plan.Hosts {
		host, err := store.Hosts().FindFirst(ctx, database.Where{database.Eq("ipAddress", ph.IPAddress)})
		if err != nil {
			return res, err
		}
		if host != nil {
			res.HostsExisting++
		} else {
			h := database.Host{Name: ph.Name, IPAddress: ph.IPAddress}
			if ph.Description != "" {
				h.Description = database.StringPtr(ph.Description)
			}
			created, err := store.Hosts().Create(ctx, h)
			if err != nil {
				return res, fmt.Errorf("failed to create host %s: %w", ph.IPAddress, err)
			}
			host = &created
			res.HostsCreated++
		}

		for i, ps := range ph.Services {
			ok, err := alloc.IsPortAvailable(ctx, host.ID, ps.Port)
			if err != nil {
				return res, err
			}
			if !ok {
				res.ServicesSkipped++
				continue
			}
			svc := database.Service{
				Name:     ps.Name,
				URL:      ps.URL,
				Port:     ps.Port,
				HostID:   host.ID,
				IconType: database.IconPreset,
				IsActive: true,
				Order:    i,
			}
			if ps.IconValue != "" {
				svc.IconValue = database.StringPtr(ps.IconValue)
			}
			if ps.Category != "" {
				svc.Category = database.StringPtr(ps.Category)
			}
			if _, err := store.Services().Create(ctx, svc); err != nil {
				if errors.Is(err, database.ErrPortInUse) {
					res.ServicesSkipped++
					continue
				}
				return res, fmt.Errorf("failed to create service %s:%d: %w", ph.IPAddress, ps.Port, err)
			}
			res.ServicesCreated++
		}

		logrus.WithFields(logrus.Fields{
			"host":     ph.Name,
			"ip":       ph.IPAddress,
			"services": len(ph.Services),
		}).Debug("Imported host")
	}
	return res, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
