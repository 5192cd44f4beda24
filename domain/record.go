package domain

import "fmt"

// HostAndPort addresses one instance in the record store.
type HostAndPort struct {
	Host string
	Port int
}

// InstanceID formats the address as {host}_{port}.
func (h HostAndPort) InstanceID() string {
	return fmt.Sprintf("%s_%d", h.Host, h.Port)
}

// StoreRecord is one timestamped value of a named scheme (dimension) for an instance.
type StoreRecord struct {
	SchemeName string `json:"schemeName"`
	Timestamp  int64  `json:"timestamp"` // epoch millis
	Value      string `json:"value"`     // JSON text produced by the collector
}
