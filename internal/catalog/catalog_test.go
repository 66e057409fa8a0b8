package catalog

import "testing"

func TestTemplatesSortedAndUnique(t *testing.T) {
	tpls := Templates()
	seen := map[string]bool{}
	for i, tpl := range tpls {
		if i > 0 && tpls[i-1].Port > tpl.Port {
			t.Errorf("templates not ordered by port at %d", i)
		}
		if seen[tpl.ID] {
			t.Errorf("duplicate template id %s", tpl.ID)
		}
		seen[tpl.ID] = true
	}
}

func TestByPort(t *testing.T) {
	tpl, ok := ByPort(8096)
	if !ok || tpl.Name != "Jellyfin" || tpl.ID != "builtin-jellyfin" {
		t.Errorf("unexpected template %+v, %v", tpl, ok)
	}
	if _, ok := ByPort(1); ok {
		t.Error("expected no template for port 1")
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Portainer (HTTPS)": "portainer-https",
		"Home Assistant":    "home-assistant",
		"SSH":               "ssh",
	}
	for in, want := range tests {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
}
