package main

import (
	"context"
	"path/filepath"
	"testing"

	"infradash/internal/database"
	"infradash/internal/ports"
)

const sampleScan = `<?xml version="1.0"?>
<nmaprun scanner="nmap" args="nmap -oX - 192.168.1.0/24" version="7.94">
  <host>
    <status state="up" reason="arp-response"/>
    <address addr="192.168.1.1" addrtype="ipv4"/>
    <address addr="AA:BB:CC:DD:EE:FF" addrtype="mac"/>
    <ports>
      <port protocol="tcp" portid="80"><state state="open"/><service name="http"/></port>
    </ports>
  </host>
  <host>
    <status state="up" reason="arp-response"/>
    <address addr="192.168.1.20" addrtype="ipv4"/>
    <hostnames><hostname name="nas.lan" type="PTR"/></hostnames>
    <ports>
      <port protocol="tcp" portid="22"><state state="open"/><service name="ssh"/></port>
      <port protocol="tcp" portid="8443"><state state="open"/><service name="http" tunnel="ssl" product="Synology DSM"/></port>
      <port protocol="tcp" portid="5000"><state state="open"/><service name="upnp"/></port>
      <port protocol="tcp" portid="3306"><state state="closed"/></port>
    </ports>
    <os><osmatch name="Linux 5.X" accuracy="98"/></os>
  </host>
  <host>
    <status state="down" reason="no-response"/>
    <address addr="192.168.1.30" addrtype="ipv4"/>
  </host>
</nmaprun>`

func TestBuildPlan(t *testing.T) {
	run, err := parseNmap([]byte(sampleScan))
	if err != nil {
		t.Fatalf("parseNmap: %v", err)
	}
	plan := buildPlan(run)

	if len(plan.Hosts) != 2 {
		t.Fatalf("expected 2 up hosts, got %d", len(plan.Hosts))
	}

	router := plan.Hosts[0]
	if router.Name != "host-1" || router.IPAddress != "192.168.1.1" {
		t.Errorf("unexpected router %+v", router)
	}

	nas := plan.Hosts[1]
	if nas.Name != "nas" || nas.Description != "Linux 5.X" {
		t.Errorf("unexpected nas %+v", nas)
	}
	if len(nas.Services) != 3 {
		t.Fatalf("expected 3 open services, got %+v", nas.Services)
	}

	tests := []struct {
		port int
		name string
		url  string
	}{
		{22, "SSH", "http://192.168.1.20:22"},
		{8443, "Synology DSM", "https://192.168.1.20:8443"},
		{5000, "upnp", "http://192.168.1.20:5000"},
	}
	for i, tt := range tests {
		got := nas.Services[i]
		if got.Port != tt.port || got.Name != tt.name || got.URL != tt.url {
			t.Errorf("service %d: got %+v, want %+v", i, got, tt)
		}
	}
}

func TestParseNmapRejectsGarbage(t *testing.T) {
	if _, err := parseNmap([]byte("not xml")); err == nil {
		t.Error("expected an error")
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, err := database.Open(filepath.Join(t.TempDir(), "db.json"))
	if err != nil {
		t.Fatal(err)
	}
	alloc := ports.New(store.Services())

	run, _ := parseNmap([]byte(sampleScan))
	plan := buildPlan(run)

	res, err := Apply(ctx, store, alloc, plan)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// 192.168.1.1 is the seeded router.
	if res.HostsCreated != 1 || res.HostsExisting != 1 || res.ServicesCreated != 4 {
		t.Errorf("first run: %+v", res)
	}

	res, err = Apply(ctx, store, alloc, plan)
	if err != nil {
		t.Fatalf("Apply again: %v", err)
	}
	if res.HostsCreated != 0 || res.ServicesCreated != 0 || res.ServicesSkipped != 4 {
		t.Errorf("second run: %+v", res)
	}

	n, _ := store.Services().Count(ctx, nil)
	if n != 4 {
		t.Errorf("expected 4 services, got %d", n)
	}
}

func TestScanPortsCoversCatalog(t *testing.T) {
	got := scanPorts()
	if got == "" || got[:2] != "22" {
		t.Errorf("unexpected port list %q", got)
	}
}
