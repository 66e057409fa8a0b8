// internal/database/validate.go
package database

import (
	"fmt"
)

const (
	MinPort = 0
	MaxPort = 65535
)

func checkHost(rows []Host, before, h *Host, self int) error {
	if before != nil && before.IPAddress == h.IPAddress {
		return nil
	}
	for i := range rows {
		if i != self && rows[i].IPAddress == h.IPAddress {
			return fmt.Errorf("ip %s: %w", h.IPAddress, ErrDuplicateIP)
		}
	}
	return nil
}

func checkService(rows []Service, before, svc *Service, self int) error {
	if svc.Port < MinPort || svc.Port > MaxPort {
		return fmt.Errorf("%w: port %d outside %d-%d", ErrInvalidField, svc.Port, MinPort, MaxPort)
	}
	if err := checkIconType(svc.IconType); err != nil {
		return err
	}
	if before != nil && before.HostID == svc.HostID && before.Port == svc.Port {
		return nil
	}
	for i := range rows {
		if i != self && rows[i].HostID == svc.HostID && rows[i].Port == svc.Port {
			return fmt.Errorf("port %d: %w", svc.Port, ErrPortInUse)
		}
	}
	return nil
}

func checkTemplate(_ []ServiceTemplate, _, t *ServiceTemplate, _ int) error {
	if t.Port < MinPort || t.Port > MaxPort {
		return fmt.Errorf("%w: port %d outside %d-%d", ErrInvalidField, t.Port, MinPort, MaxPort)
	}
	return checkIconType(t.IconType)
}

func checkUser(rows []User, before, u *User, self int) error {
	if before != nil && before.Username == u.Username {
		return nil
	}
	for i := range rows {
		if i != self && rows[i].Username == u.Username {
			return fmt.Errorf("username %q: %w", u.Username, ErrDuplicateUsername)
		}
	}
	return nil
}

// checkIconType accepts the two known icon types; empty is left to callers.
func checkIconType(t string) error {
	switch t {
	case "", IconPreset, IconUpload:
		return nil
	}
	return fmt.Errorf("%w: iconType %q", ErrInvalidField, t)
}
