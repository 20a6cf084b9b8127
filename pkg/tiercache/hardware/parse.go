package hardware

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Parse errors.
var (
	ErrNoDisplays = errors.New("no display adapters reported")
	ErrNoStorage  = errors.New("no storage volume mounted at /")
	ErrNoMemTotal = errors.New("MemTotal not found")
)

// parseDisplays reads `system_profiler -json SPDisplaysDataType` output.
// It returns the first adapter's model and the summed core count of all
// adapters that report one.
func parseDisplays(data []byte) (name string, cores int, err error) {
	if !gjson.ValidBytes(data) {
		return "", 0, fmt.Errorf("invalid system_profiler output")
	}

	adapters := gjson.GetBytes(data, "SPDisplaysDataType").Array()
	if len(adapters) == 0 {
		return "", 0, ErrNoDisplays
	}

	for _, adapter := range adapters {
		if name == "" {
			name = adapter.Get("sppci_model").String()
			if name == "" {
				name = adapter.Get("_name").String()
			}
		}
		// sppci_cores is reported as a string, e.g. "19".
		if n, convErr := strconv.Atoi(strings.TrimSpace(adapter.Get("sppci_cores").String())); convErr == nil {
			cores += n
		}
	}

	return name, cores, nil
}

// parseStorage reads `system_profiler -json SPStorageDataType` output and
// describes the physical drive behind the root volume, e.g. "SSD (Apple Fabric)".
func parseStorage(data []byte) (string, error) {
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("invalid system_profiler output")
	}

	drive := gjson.GetBytes(data, `SPStorageDataType.#(mount_point=="/").physical_drive`)
	if !drive.Exists() {
		return "", ErrNoStorage
	}

	medium := strings.ToUpper(drive.Get("medium_type").String())
	if medium == "" {
		medium = unknown
	}
	if protocol := drive.Get("protocol").String(); protocol != "" {
		return fmt.Sprintf("%s (%s)", medium, protocol), nil
	}
	return medium, nil
}

// parseMeminfo returns MemTotal from /proc/meminfo in bytes.
func parseMeminfo(r io.Reader) (int64, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing MemTotal: %w", err)
		}
		return kb * 1024, nil
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return 0, ErrNoMemTotal
}

// cpuInfo is the subset of /proc/cpuinfo tiercache uses.
type cpuInfo struct {
	brand   string
	cores   int // physical cores, 0 when the kernel does not say
	logical int
}

// parseCPUInfo counts physical cores as distinct (physical id, core id)
// pairs, falling back to the "cpu cores" field when ids are absent.
func parseCPUInfo(r io.Reader) (cpuInfo, error) {
	var (
		info      cpuInfo
		physID    string
		pairs     = make(map[string]struct{})
		perSocket int
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "processor":
			info.logical++
		case "model name":
			if info.brand == "" {
				info.brand = value
			}
		case "physical id":
			physID = value
		case "core id":
			pairs[physID+"/"+value] = struct{}{}
		case "cpu cores":
			if n, err := strconv.Atoi(value); err == nil && perSocket == 0 {
				perSocket = n
			}
		}
	}
	if err := sc.Err(); err != nil {
		return cpuInfo{}, err
	}

	switch {
	case len(pairs) > 0:
		info.cores = len(pairs)
	case perSocket > 0:
		info.cores = perSocket
	}

	return info, nil
}

// storageKind maps /sys/block/<dev>/queue/rotational to a label.
func storageKind(rotational string) string {
	switch strings.TrimSpace(rotational) {
	case "0":
		return "SSD"
	case "1":
		return "HDD"
	default:
		return unknown
	}
}
