// ===== internal/capture/names.go =====
package capture

import (
	"fmt"
	"strings"
)

const npfPrefix = `\Device\NPF_`

// DisplayName derives a readable name for a capture device. Windows NPF
// device paths are replaced with a name built from the adapter description;
// seen counts repeated generic names.
func DisplayName(description, device string, seen map[string]int) string {
	if !strings.HasPrefix(device, npfPrefix) {
		return device
	}

	desc := strings.ToLower(description)
	switch {
	case containsAny(desc, "ethernet", "gigabit", "network adapter"):
		switch {
		case strings.Contains(desc, "aquantia"):
			return "Ethernet (Aquantia)"
		case strings.Contains(desc, "intel"):
			return "Ethernet (Intel)"
		case strings.Contains(desc, "realtek"):
			return "Ethernet (Realtek)"
		}
		return "Ethernet"
	case containsAny(desc, "wifi", "wi-fi", "wireless", "802.11"):
		return "Wi-Fi"
	case strings.Contains(desc, "bluetooth"):
		return "Bluetooth"
	case strings.Contains(desc, "loopback"):
		return "Loopback"
	case containsAny(desc, "virtual", "hyper-v"):
		return "Virtual Interface"
	case strings.Contains(desc, "microsoft"):
		if strings.Contains(desc, "kernel") {
			return "Kernel Interface"
		}
		seen["microsoft"]++
		if n := seen["microsoft"]; n > 1 {
			return fmt.Sprintf("Microsoft Interface %d", n)
		}
		return "Microsoft Interface"
	}

	return meaningfulName(description)
}

func meaningfulName(description string) string {
	parts := strings.Fields(description)
	if len(parts) <= 2 {
		return "Network Interface"
	}

	var picked []string
	for _, p := range parts {
		switch strings.ToLower(p) {
		case "microsoft", "adapter", "network", "interface":
			continue
		}
		if len(p) <= 2 {
			continue
		}
		picked = append(picked, p)
		if len(picked) == 2 {
			break
		}
	}

	if len(picked) == 0 {
		return "Network Interface"
	}
	return strings.Join(picked, " ")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsLoopbackDescription reports whether a device description names a
// loopback adapter
func IsLoopbackDescription(description string) bool {
	return strings.Contains(strings.ToLower(description), "loopback")
}
