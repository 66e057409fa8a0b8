// cmd/infradash-discover/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"infradash/internal/config"
	"infradash/internal/database"
	"infradash/internal/ports"
)

func main() {
	var (
		network     = flag.String("network", "", "CIDR network to scan (e.g., 192.168.1.0/24)")
		xmlFile     = flag.String("xml", "", "Use existing nmap XML file instead of scanning")
		configFile  = flag.String("config", "config.yaml", "Configuration file path")
		dbPath      = flag.String("db", "", "Store file to import into (overrides config)")
		nmapPath    = flag.String("nmap", "/usr/bin/nmap", "Path to nmap binary")
		dryRun      = flag.Bool("dry-run", false, "Print the import plan as YAML without writing")
		osDetection = flag.Bool("os", false, "Enable OS detection (requires root)")
		verbose     = flag.Bool("verbose", false, "Verbose output")
	)
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if *network == "" && *xmlFile == "" {
		detected := detectLocalNetwork()
		if detected == "" {
			logrus.Fatal("No network specified and couldn't detect local network. Use -network flag.")
		}
		*network = detected
		fmt.Printf("Auto-detected network: %s\n", *network)
	}

	var data []byte
	var err error
	if *xmlFile != "" {
		fmt.Printf("Reading nmap XML from: %s\n", *xmlFile)
		data, err = os.ReadFile(*xmlFile)
	} else {
		fmt.Printf("Scanning network: %s\n", *network)
		data, err = runNmapScan(*network, *nmapPath, *osDetection, *verbose)
	}
	if err != nil {
		logrus.Fatalf("Failed to read scan: %v", err)
	}

	run, err := parseNmap(data)
	if err != nil {
		logrus.Fatal(err)
	}
	plan := buildPlan(run)

	if *dryRun {
		out, err := yaml.Marshal(plan)
		if err != nil {
			logrus.Fatalf("Failed to marshal plan: %v", err)
		}
		fmt.Printf("# infradash import plan generated %s\n", time.Now().Format("2006-01-02 15:04:05"))
		os.Stdout.Write(out)
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	path := cfg.Database.Path
	if *dbPath != "" {
		path = database.ResolvePath(*dbPath, path)
	}

	store, err := database.Open(path)
	if err != nil {
		logrus.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	alloc := ports.New(store.Services())
	res, err := Apply(context.Background(), store, alloc, plan)
	if err != nil {
		logrus.Fatalf("Import failed: %v", err)
	}

	fmt.Printf("\nImported into: %s\n", path)
	fmt.Printf("Hosts: %d created, %d already present\n", res.HostsCreated, res.HostsExisting)
	fmt.Printf("Services: %d created, %d skipped (port in use)\n", res.ServicesCreated, res.ServicesSkipped)
}
