// internal/catalog/catalog.go - built-in service templates
package catalog

import (
	"sort"

	"infradash/internal/database"
)

type entry struct {
	name     string
	desc     string
	port     int
	icon     string
	category string
}

var builtins = []entry{
	{"SSH", "Secure shell", 22, "terminal", "System"},
	{"HTTP", "Web server", 80, "globe", "Web"},
	{"HTTPS", "Web server (TLS)", 443, "lock", "Web"},
	{"Grafana", "Metrics dashboards", 3000, "bar-chart", "Monitoring"},
	{"MySQL", "Relational database", 3306, "database", "Database"},
	{"Uptime Kuma", "Uptime monitoring", 3001, "activity", "Monitoring"},
	{"PostgreSQL", "Relational database", 5432, "database", "Database"},
	{"Redis", "In-memory data store", 6379, "database", "Database"},
	{"Home Assistant", "Home automation", 8123, "home", "Home"},
	{"Nextcloud", "File sync and share", 8080, "cloud", "Storage"},
	{"Jellyfin", "Media server", 8096, "film", "Media"},
	{"Proxmox VE", "Virtualization", 8006, "server", "System"},
	{"Portainer", "Container management", 9000, "box", "System"},
	{"Prometheus", "Metrics collection", 9090, "activity", "Monitoring"},
	{"Node Exporter", "Host metrics", 9100, "cpu", "Monitoring"},
	{"Portainer (HTTPS)", "Container management", 9443, "box", "System"},
	{"Plex", "Media server", 32400, "film", "Media"},
	{"Transmission", "BitTorrent client", 9091, "download", "Media"},
	{"Syncthing", "File synchronization", 8384, "refresh-cw", "Storage"},
	{"AdGuard Home", "DNS ad blocking", 3080, "shield", "Network"},
}

// Templates returns the built-in templates ordered by port. Ids are stable
// so clients can refer to them.
func Templates() []database.ServiceTemplate {
	out := make([]database.ServiceTemplate, 0, len(builtins))
	for _, e := range builtins {
		out = append(out, template(e))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Port < out[j].Port })
	return out
}

// ByPort returns the built-in template for a well-known port.
func ByPort(port int) (database.ServiceTemplate, bool) {
	for _, e := range builtins {
		if e.port == port {
			return template(e), true
		}
	}
	return database.ServiceTemplate{}, false
}

func template(e entry) database.ServiceTemplate {
	return database.ServiceTemplate{
		Meta:        database.Meta{ID: "builtin-" + slug(e.name)},
		Name:        e.name,
		Description: database.StringPtr(e.desc),
		Port:        e.port,
		IconType:    database.IconPreset,
		IconValue:   database.StringPtr(e.icon),
		Category:    database.StringPtr(e.category),
	}
}

func slug(s string) string {
	b := make([]byte, 0, len(s))
	dash := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
			fallthrough
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b = append(b, c)
			dash = false
		default:
			if !dash && len(b) > 0 {
				b = append(b, '-')
				dash = true
			}
		}
	}
	if dash {
		b = b[:len(b)-1]
	}
	return string(b)
}
