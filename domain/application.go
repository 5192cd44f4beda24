package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Application is one running process of a named application as announced in the registry.
// Identity is (Name, Host, InternalHost, Port); State, StartTime and LastRecover are informational.
type Application struct {
	Name         string `json:"appName"`
	Host         string `json:"hostName"`
	InternalHost string `json:"internalHost,omitempty"` // optional private address
	Port         int    `json:"port"`
	State        string `json:"appState"`    // free-form, e.g. UP / DOWN
	StartTime    int64  `json:"startTime"`   // epoch millis
	LastRecover  int64  `json:"lastRecover"` // epoch millis, bumped on every (re)registration
}

// Application states reported by the agent.
const (
	StateUp   = "UP"
	StateDown = "DOWN"
)

// ErrInvalidApplication is wrapped by every validation failure of NewApplication and Validate.
var ErrInvalidApplication = errors.New("invalid application")

// NewApplication builds a validated Application. StartTime and LastRecover are both set to startMs.
func NewApplication(name, host, internalHost string, port int, state string, startMs int64) (Application, error) {
	app := Application{
		Name:         name,
		Host:         host,
		InternalHost: internalHost,
		Port:         port,
		State:        state,
		StartTime:    startMs,
		LastRecover:  startMs,
	}
	if err := app.Validate(); err != nil {
		return Application{}, err
	}
	return app, nil
}

// Validate reports whether the identity fields can be published as a session node.
func (a Application) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidApplication)
	}
	if a.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidApplication)
	}
	if strings.Contains(a.Name, "/") {
		return fmt.Errorf("%w: name %q contains '/'", ErrInvalidApplication, a.Name)
	}
	if strings.Contains(a.Host, "/") {
		return fmt.Errorf("%w: host %q contains '/'", ErrInvalidApplication, a.Host)
	}
	if a.Port <= 0 || a.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidApplication, a.Port)
	}
	return nil
}

// Equal compares identity only.
func (a Application) Equal(o Application) bool {
	return a.Name == o.Name && a.Host == o.Host && a.InternalHost == o.InternalHost && a.Port == o.Port
}

// Compare orders by name, host, internal host, then port. An empty internal host sorts before any
// non-empty one, so the order is total and Compare(a, b) == -Compare(b, a).
func (a Application) Compare(o Application) int {
	if c := strings.Compare(a.Name, o.Name); c != 0 {
		return c
	}
	if c := strings.Compare(a.Host, o.Host); c != 0 {
		return c
	}
	if c := strings.Compare(a.InternalHost, o.InternalHost); c != 0 {
		return c
	}
	switch {
	case a.Port < o.Port:
		return -1
	case a.Port > o.Port:
		return 1
	}
	return 0
}

// Key is a map key that is equal for two applications iff Equal reports true.
func (a Application) Key() string {
	return strconv.Quote(a.Name) + "|" + strconv.Quote(a.Host) + "|" + strconv.Quote(a.InternalHost) + "|" + strconv.Itoa(a.Port)
}

// HostAndPort returns the address used to key stored records.
func (a Application) HostAndPort() HostAndPort {
	return HostAndPort{Host: a.Host, Port: a.Port}
}
