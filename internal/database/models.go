// internal/database/models.go
package database

import (
	"time"
)

// Collection names as they appear in the persisted file.
const (
	UsersCollection            = "users"
	HostsCollection            = "hosts"
	ServicesCollection         = "services"
	CategoriesCollection       = "categories"
	ServiceTemplatesCollection = "serviceTemplates"
)

// Icon types accepted for services and templates.
const (
	IconPreset = "preset"
	IconUpload = "upload"
)

// Meta carries the store-managed fields shared by every record.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Meta) meta() *Meta { return m }

func (m Meta) field(name string) (any, bool) {
	switch name {
	case "id":
		return m.ID, true
	case "createdAt":
		return m.CreatedAt, true
	case "updatedAt":
		return m.UpdatedAt, true
	}
	return nil, false
}

type User struct {
	Meta
	Username string `json:"username"`
	Password string `json:"password"`
}

func (u User) Field(name string) (any, bool) {
	switch name {
	case "username":
		return u.Username, true
	case "password":
		return u.Password, true
	}
	return u.Meta.field(name)
}

type Host struct {
	Meta
	Name        string  `json:"name"`
	IPAddress   string  `json:"ipAddress"`
	Description *string `json:"description,omitempty"`
	Order       int     `json:"order"`
}

func (h Host) Field(name string) (any, bool) {
	switch name {
	case "name":
		return h.Name, true
	case "ipAddress":
		return h.IPAddress, true
	case "description":
		return deref(h.Description), true
	case "order":
		return h.Order, true
	}
	return h.Meta.field(name)
}

type Service struct {
	Meta
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	URL         string  `json:"url"`
	Port        int     `json:"port"`
	HostID      string  `json:"hostId"`
	IconType    string  `json:"iconType"`
	IconValue   *string `json:"iconValue,omitempty"`
	Category    *string `json:"category,omitempty"`
	IsActive    bool    `json:"isActive"`
	Order       int     `json:"order"`
}

func (s Service) Field(name string) (any, bool) {
	switch name {
	case "name":
		return s.Name, true
	case "description":
		return deref(s.Description), true
	case "url":
		return s.URL, true
	case "port":
		return s.Port, true
	case "hostId":
		return s.HostID, true
	case "iconType":
		return s.IconType, true
	case "iconValue":
		return deref(s.IconValue), true
	case "category":
		return deref(s.Category), true
	case "isActive":
		return s.IsActive, true
	case "order":
		return s.Order, true
	}
	return s.Meta.field(name)
}

type Category struct {
	Meta
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
	Order int     `json:"order"`
}

func (c Category) Field(name string) (any, bool) {
	switch name {
	case "name":
		return c.Name, true
	case "color":
		return deref(c.Color), true
	case "order":
		return c.Order, true
	}
	return c.Meta.field(name)
}

type ServiceTemplate struct {
	Meta
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Port        int     `json:"port"`
	IconType    string  `json:"iconType"`
	IconValue   *string `json:"iconValue,omitempty"`
	Category    *string `json:"category,omitempty"`
}

func (t ServiceTemplate) Field(name string) (any, bool) {
	switch name {
	case "name":
		return t.Name, true
	case "description":
		return deref(t.Description), true
	case "port":
		return t.Port, true
	case "iconType":
		return t.IconType, true
	case "iconValue":
		return deref(t.IconValue), true
	case "category":
		return deref(t.Category), true
	}
	return t.Meta.field(name)
}

// HostWithServices is a host hydrated with its child services.
type HostWithServices struct {
	Host
	Services []Service `json:"services"`
}

func (h HostWithServices) Field(name string) (any, bool) {
	if name == "services" {
		return h.Services, true
	}
	return h.Host.Field(name)
}

// ServiceWithHost is a service hydrated with its parent host. Host is nil
// when hostId does not reference an existing host.
type ServiceWithHost struct {
	Service
	Host *Host `json:"host,omitempty"`
}

func (s ServiceWithHost) Field(name string) (any, bool) {
	if name == "host" {
		if s.Host == nil {
			return nil, true
		}
		return *s.Host, true
	}
	return s.Service.Field(name)
}

// Snapshot is the full persisted database.
type Snapshot struct {
	Users            []User            `json:"users"`
	Hosts            []Host            `json:"hosts"`
	Services         []Service         `json:"services"`
	Categories       []Category        `json:"categories"`
	ServiceTemplates []ServiceTemplate `json:"serviceTemplates"`
}

// normalize replaces nil collections so they persist as [] rather than null.
func (s *Snapshot) normalize() {
	if s.Users == nil {
		s.Users = []User{}
	}
	if s.Hosts == nil {
		s.Hosts = []Host{}
	}
	if s.Services == nil {
		s.Services = []Service{}
	}
	if s.Categories == nil {
		s.Categories = []Category{}
	}
	if s.ServiceTemplates == nil {
		s.ServiceTemplates = []ServiceTemplate{}
	}
}

// Change describes a committed mutation.
type Change struct {
	Collection string    `json:"collection"`
	Action     string    `json:"action"`
	ID         string    `json:"id,omitempty"`
	At         time.Time `json:"at"`
}

// Change actions.
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionRestore = "restore"
)

// StringPtr is a convenience for optional fields.
func StringPtr(s string) *string { return &s }

func deref(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
