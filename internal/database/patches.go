// internal/database/patches.go
package database

// setOptional applies a patch value to an optional text field: nil leaves it
// unchanged, an empty string clears it.
func setOptional(dst **string, v *string) {
	switch {
	case v == nil:
	case *v == "":
		*dst = nil
	default:
		*dst = v
	}
}

// HostPatch carries optional host fields; nil fields are left unchanged and
// an empty Description clears it.
type HostPatch struct {
	Name        *string `json:"name"`
	IPAddress   *string `json:"ipAddress"`
	Description *string `json:"description"`
	Order       *int    `json:"order"`
}

func (p HostPatch) Apply(h *Host) {
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.IPAddress != nil {
		h.IPAddress = *p.IPAddress
	}
	setOptional(&h.Description, p.Description)
	if p.Order != nil {
		h.Order = *p.Order
	}
}

// ServicePatch carries optional service fields; nil fields are left
// unchanged and empty optional text fields are cleared. HostID moves a
// service to another host.
type ServicePatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	URL         *string `json:"url"`
	Port        *int    `json:"port"`
	HostID      *string `json:"hostId"`
	IconType    *string `json:"iconType"`
	IconValue   *string `json:"iconValue"`
	Category    *string `json:"category"`
	IsActive    *bool   `json:"isActive"`
	Order       *int    `json:"order"`
}

func (p ServicePatch) Apply(s *Service) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	setOptional(&s.Description, p.Description)
	if p.URL != nil {
		s.URL = *p.URL
	}
	if p.Port != nil {
		s.Port = *p.Port
	}
	if p.HostID != nil {
		s.HostID = *p.HostID
	}
	if p.IconType != nil {
		s.IconType = *p.IconType
	}
	setOptional(&s.IconValue, p.IconValue)
	setOptional(&s.Category, p.Category)
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
	if p.Order != nil {
		s.Order = *p.Order
	}
}

type UserPatch struct {
	Username *string
	Password *string
}

func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
}

type CategoryPatch struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
	Order *int    `json:"order"`
}

func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	setOptional(&c.Color, p.Color)
	if p.Order != nil {
		c.Order = *p.Order
	}
}

type ServiceTemplatePatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Port        *int    `json:"port"`
	IconType    *string `json:"iconType"`
	IconValue   *string `json:"iconValue"`
	Category    *string `json:"category"`
}

func (p ServiceTemplatePatch) Apply(t *ServiceTemplate) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	setOptional(&t.Description, p.Description)
	if p.Port != nil {
		t.Port = *p.Port
	}
	if p.IconType != nil {
		t.IconType = *p.IconType
	}
	setOptional(&t.IconValue, p.IconValue)
	setOptional(&t.Category, p.Category)
}
