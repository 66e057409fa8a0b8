// cmd/infradash-discover/nmap.go
package main

import (
	"encoding/xml"
	"fmt"
	"net"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"infradash/internal/catalog"
)

// Nmap XML structures
type NmapRun struct {
	XMLName  xml.Name `xml:"nmaprun"`
	Scanner  string   `xml:"scanner,attr"`
	Args     string   `xml:"args,attr"`
	StartStr string   `xml:"startstr,attr"`
	Version  string   `xml:"version,attr"`
	Hosts    []Host   `xml:"host"`
}

type Host struct {
	Status    HostStatus `xml:"status"`
	Addresses []Address  `xml:"address"`
	Hostnames []Hostname `xml:"hostnames>hostname"`
	Ports     []Port     `xml:"ports>port"`
	OS        []OSMatch  `xml:"os>osmatch"`
}

type HostStatus struct {
	State  string `xml:"state,attr"`
	Reason string `xml:"reason,attr"`
}

type Address struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
}

type Hostname struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

type Port struct {
	Protocol string      `xml:"protocol,attr"`
	PortID   int         `xml:"portid,attr"`
	State    PortState   `xml:"state"`
	Service  PortService `xml:"service"`
}

type PortState struct {
	State string `xml:"state,attr"`
}

type PortService struct {
	Name    string `xml:"name,attr"`
	Product string `xml:"product,attr"`
	Tunnel  string `xml:"tunnel,attr"`
}

type OSMatch struct {
	Name     string `xml:"name,attr"`
	Accuracy int    `xml:"accuracy,attr"`
}

func parseNmap(data []byte) (*NmapRun, error) {
	var run NmapRun
	if err := xml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse nmap XML: %w", err)
	}
	return &run, nil
}

// scanPorts is the port list handed to nmap: every port a built-in template
// knows about.
func scanPorts() string {
	seen := make(map[int]bool)
	var list []int
	for _, t := range catalog.Templates() {
		if !seen[t.Port] {
			seen[t.Port] = true
			list = append(list, t.Port)
		}
	}
	sort.Ints(list)

	parts := make([]string, len(list))
	for i, p := range list {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

func runNmapScan(network, nmapPath string, osDetection, verbose bool) ([]byte, error) {
	args := []string{
		"--system-dns",
		"-sV",
		"-oX", "-",
		"-p", scanPorts(),
	}

	if osDetection {
		args = append(args, "-O")
	}

	if verbose {
		args = append(args, "-v")
	}

	args = append(args, network)

	fmt.Printf("Running: %s %s\n", nmapPath, strings.Join(args, " "))

	output, err := exec.Command(nmapPath, args...).Output()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			if status, ok := exitError.Sys().(syscall.WaitStatus); ok {
				return nil, fmt.Errorf("nmap exited with status %d", status.ExitStatus())
			}
		}
		return nil, fmt.Errorf("nmap execution failed: %w", err)
	}

	return output, nil
}

func detectLocalNetwork() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil && ipnet.IP.IsGlobalUnicast() {
				network := &net.IPNet{IP: ipnet.IP.Mask(ipnet.Mask), Mask: ipnet.Mask}
				return network.String()
			}
		}
	}
	return ""
}
