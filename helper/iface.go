package helper

import (
	"errors"
	"net"
	"strings"
)

var ErrNoInterface = errors.New("helper: no suitable network interface found")

// Interface summarizes the properties of a network interface relevant to
// default interface selection.
type Interface struct {
	Name     string
	Up       bool
	Loopback bool
	IPv4     bool
}

// DefaultInterface returns the interface the helper should announce itself
// on: the first wireless (wlan*) interface if there is one, otherwise the
// first interface that is up, not a loopback and has an IPv4 address.
func DefaultInterface() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}

	list := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		info := Interface{
			Name:     iface.Name,
			Up:       iface.Flags&net.FlagUp != 0,
			Loopback: iface.Flags&net.FlagLoopback != 0,
		}
		if addrs, err := iface.Addrs(); err == nil {
			for _, addr := range addrs {
				if ipNet, ok := addr.(*net.IPNet); ok && ipNet.IP.To4() != nil {
					info.IPv4 = true
					break
				}
			}
		}
		list = append(list, info)
	}

	return pickInterface(list)
}

func pickInterface(ifaces []Interface) (string, error) {
	fallback := ""
	for _, iface := range ifaces {
		if !iface.Up || iface.Loopback || !iface.IPv4 {
			continue
		}
		if strings.HasPrefix(iface.Name, "wlan") {
			return iface.Name, nil
		}
		if fallback == "" {
			fallback = iface.Name
		}
	}

	if fallback == "" {
		return "", ErrNoInterface
	}
	return fallback, nil
}
