package sysinfo

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// CPUInfo holds the fields extracted from /proc/cpuinfo.
type CPUInfo struct {
	CPUCount int    `json:"cpu_count"`
	Model    string `json:"model,omitempty"`
	Serial   string `json:"serial,omitempty"`
	Hardware string `json:"hardware,omitempty"`
	Revision string `json:"revision,omitempty"`
}

// Memory holds system memory figures in mebibytes.
type Memory struct {
	Total     int64 `json:"total"`
	Used      int64 `json:"used"`
	Free      int64 `json:"free"`
	Shared    int64 `json:"shared"`
	Buffers   int64 `json:"buff"`
	Available int64 `json:"available"`
}

// Uptime is system uptime split into whole days and fractional hours.
type Uptime struct {
	Days  int     `json:"days"`
	Hours float64 `json:"hours"`
}

// Disk holds filesystem usage for a mount point, in bytes.
type Disk struct {
	Total int64 `json:"total"`
	Used  int64 `json:"used"`
	Free  int64 `json:"free"`
}

// Reader collects system diagnostics from procfs and the network stack.
// The proc root is injectable so tests can point it at fixture files.
type Reader struct {
	procRoot string
}

// NewReader creates a Reader over the host's /proc.
func NewReader() *Reader {
	return &Reader{procRoot: "/proc"}
}

// NewReaderWithRoot creates a Reader over an alternate proc root.
// Used by tests with fixture directories.
func NewReaderWithRoot(root string) *Reader {
	return &Reader{procRoot: root}
}

// CPUInfo parses /proc/cpuinfo.
//
// Each "processor" entry increments the CPU count; Model, Serial, Hardware
// and Revision are taken from the matching key lines when present (these
// exist on Raspberry Pi class hardware, not on x86). Malformed lines are
// skipped.
func (r *Reader) CPUInfo() (*CPUInfo, error) {
	f, err := os.Open(filepath.Join(r.procRoot, "cpuinfo"))
	if err != nil {
		return nil, fmt.Errorf("reading cpuinfo: %w", err)
	}
	defer f.Close()

	info := &CPUInfo{}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}

		switch key {
		case "processor":
			info.CPUCount++
		case "Model":
			info.Model = value
		case "Serial":
			info.Serial = value
		case "Hardware":
			info.Hardware = value
		case "Revision":
			info.Revision = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning cpuinfo: %w", err)
	}

	return info, nil
}

// DeviceType classifies the host from the device-tree model string.
//
// Returns:
//   - string: "pi5".."pi1" for Raspberry Pi class hardware, "x86" when no
//     device tree exists
func (r *Reader) DeviceType() string {
	data, err := os.ReadFile(filepath.Join(r.procRoot, "device-tree/model"))
	if err != nil {
		return "x86"
	}

	content := string(data)
	switch {
	case strings.Contains(content, "Raspberry Pi 5"), strings.Contains(content, "Compute Module 5"):
		return "pi5"
	case strings.Contains(content, "Raspberry Pi 4"), strings.Contains(content, "Compute Module 4"):
		return "pi4"
	case strings.Contains(content, "Raspberry Pi 3"), strings.Contains(content, "Compute Module 3"):
		return "pi3"
	case strings.Contains(content, "Raspberry Pi 2"):
		return "pi2"
	default:
		return "pi1"
	}
}

// DeviceModel returns a human-readable device model name.
// Falls back to a generic label when /proc/cpuinfo carries no Model line.
func (r *Reader) DeviceModel() string {
	info, err := r.CPUInfo()
	if err == nil && info.Model != "" {
		return info.Model
	}
	return "Generic x86_64 Device"
}

// Uptime reads /proc/uptime and splits it into days and fractional hours.
func (r *Reader) Uptime() (*Uptime, error) {
	data, err := os.ReadFile(filepath.Join(r.procRoot, "uptime"))
	if err != nil {
		return nil, fmt.Errorf("reading uptime: %w", err)
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return nil, fmt.Errorf("parsing uptime: empty file")
	}

	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, fmt.Errorf("parsing uptime %q: %w", fields[0], err)
	}

	d := time.Duration(seconds * float64(time.Second))
	days := int(d.Hours()) / 24
	remainder := d - time.Duration(days)*24*time.Hour

	return &Uptime{
		Days:  days,
		Hours: roundTo(remainder.Hours(), 2),
	}, nil
}

// Memory reads /proc/meminfo and reports figures in mebibytes.
// Used is derived as total minus available, matching what management UIs
// display as in-use memory.
func (r *Reader) Memory() (*Memory, error) {
	f, err := os.Open(filepath.Join(r.procRoot, "meminfo"))
	if err != nil {
		return nil, fmt.Errorf("reading meminfo: %w", err)
	}
	defer f.Close()

	fields := map[string]int64{}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		// values are "<n> kB"
		parts := strings.Fields(value)
		if len(parts) == 0 {
			continue
		}
		kb, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			continue
		}
		fields[strings.TrimSpace(key)] = kb
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning meminfo: %w", err)
	}

	toMiB := func(kb int64) int64 { return kb >> 10 }

	m := &Memory{
		Total:     toMiB(fields["MemTotal"]),
		Free:      toMiB(fields["MemFree"]),
		Shared:    toMiB(fields["Shmem"]),
		Buffers:   toMiB(fields["Buffers"]),
		Available: toMiB(fields["MemAvailable"]),
	}
	m.Used = m.Total - m.Available

	return m, nil
}

// LoadAvg returns the 15-minute load average from /proc/loadavg.
func (r *Reader) LoadAvg() (float64, error) {
	data, err := os.ReadFile(filepath.Join(r.procRoot, "loadavg"))
	if err != nil {
		return 0, fmt.Errorf("reading loadavg: %w", err)
	}

	fields := strings.Fields(string(data))
	if len(fields) < 3 {
		return 0, fmt.Errorf("parsing loadavg: unexpected format %q", string(data))
	}

	load, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return 0, fmt.Errorf("parsing loadavg %q: %w", fields[2], err)
	}
	return load, nil
}

// DiskUsage reports filesystem usage for the given mount point.
func DiskUsage(path string) (*Disk, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return nil, fmt.Errorf("statfs %s: %w", path, err)
	}

	total := int64(stat.Blocks) * int64(stat.Frsize)
	free := int64(stat.Bavail) * int64(stat.Frsize)

	return &Disk{
		Total: total,
		Free:  free,
		Used:  total - free,
	}, nil
}

// IPAddresses returns the host's non-loopback unicast addresses formatted as
// browsable URLs. IPv6 addresses are bracketed.
func IPAddresses() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}

	var urls []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() || ipNet.IP.IsLinkLocalUnicast() {
				continue
			}
			if ipNet.IP.To4() != nil {
				urls = append(urls, fmt.Sprintf("http://%s", ipNet.IP))
			} else {
				urls = append(urls, fmt.Sprintf("http://[%s]", ipNet.IP))
			}
		}
	}
	return urls
}

// MACAddress returns the hardware address of the first up, non-loopback
// interface, or an empty string when none exists.
func MACAddress() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if hw := iface.HardwareAddr.String(); hw != "" {
			return hw
		}
	}
	return ""
}

// HumanSize formats a byte count using binary units, e.g. "14G".
func HumanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%dB", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.0f%c", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func roundTo(v float64, places int) float64 {
	shift := 1.0
	for i := 0; i < places; i++ {
		shift *= 10
	}
	return float64(int64(v*shift+0.5)) / shift
}
