// Package security holds the TLS settings shared by the operator API and
// the NATS connection.
package security

import (
	"fmt"

	"github.com/c360/semreason/errors"
)

// ServerTLS configures TLS for the operator HTTP API.
type ServerTLS struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	CertFile   string `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile    string `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	MinVersion string `json:"min_version,omitempty" yaml:"min_version,omitempty"` // "1.2" or "1.3"

	// ClientCAFiles turns on client certificate verification.
	ClientCAFiles     []string `json:"client_ca_files,omitempty" yaml:"client_ca_files,omitempty"`
	RequireClientCert bool     `json:"require_client_cert,omitempty" yaml:"require_client_cert,omitempty"`
	AllowedClientCNs  []string `json:"allowed_client_cns,omitempty" yaml:"allowed_client_cns,omitempty"`
}

// ClientTLS configures TLS for outgoing connections. The system CA bundle
// is always trusted; CAFiles add to it.
type ClientTLS struct {
	Enabled            bool     `json:"enabled" yaml:"enabled"`
	CAFiles            []string `json:"ca_files,omitempty" yaml:"ca_files,omitempty"`
	CertFile           string   `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile            string   `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	ServerName         string   `json:"server_name,omitempty" yaml:"server_name,omitempty"`
	MinVersion         string   `json:"min_version,omitempty" yaml:"min_version,omitempty"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty"` // testing only
}

// Validate checks the server settings when enabled.
func (c ServerTLS) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.CertFile == "" || c.KeyFile == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: cert_file and key_file are required", errors.ErrInvalidConfig),
			"ServerTLS", "Validate", "check certificate files")
	}
	if (c.RequireClientCert || len(c.AllowedClientCNs) > 0) && len(c.ClientCAFiles) == 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: client verification needs client_ca_files", errors.ErrInvalidConfig),
			"ServerTLS", "Validate", "check client verification")
	}
	return validVersion("ServerTLS", c.MinVersion)
}

// Validate checks the client settings when enabled.
func (c ClientTLS) Validate() error {
	if !c.Enabled {
		return nil
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.WrapInvalid(fmt.Errorf("%w: cert_file and key_file go together", errors.ErrInvalidConfig),
			"ClientTLS", "Validate", "check client certificate")
	}
	return validVersion("ClientTLS", c.MinVersion)
}

func validVersion(component, v string) error {
	switch v {
	case "", "1.2", "1.3":
		return nil
	}
	return errors.WrapInvalid(fmt.Errorf("%w: min_version %q (must be 1.2 or 1.3)", errors.ErrInvalidConfig, v),
		component, "Validate", "check min_version")
}
