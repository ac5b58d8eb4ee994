// Package tlsconfig provides helpers and constants for SSL/TLS configuration,
// used when a routing rule dials its backend with useSSL=true. Backend trust
// is deliberately trust-all: the agent talks to local or internal services
// on self-signed certificates, so there is no certificate verification path.
package tlsconfig

import "crypto/tls"

// TLS protocol versions used by VersionProfile.
const (
	VersionTLS12 uint16 = tls.VersionTLS12
	VersionTLS13 uint16 = tls.VersionTLS13
)

// VersionProfile is a pre-configured min/max TLS version range.
type VersionProfile struct {
	Min         uint16
	Max         uint16
	Description string
}

// ProfileSecure is the only profile the agent dials backends with: TLS 1.2+,
// the minimum version recommended for production use.
var ProfileSecure = VersionProfile{
	Min:         VersionTLS12,
	Max:         VersionTLS13,
	Description: "TLS 1.2+ - secure and widely compatible",
}

// CipherSuitesTLS12Secure are the ECDHE/AEAD suites offered for a TLS 1.2
// handshake; TLS 1.3 negotiates its own suites automatically.
var CipherSuitesTLS12Secure = []uint16{
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
}

// ApplyVersionProfile applies a pre-configured version profile to tls.Config.
func ApplyVersionProfile(config *tls.Config, profile VersionProfile) {
	config.MinVersion = profile.Min
	config.MaxVersion = profile.Max
}

// ApplyCipherSuites sets the offered cipher suites for a TLS 1.2 handshake.
// Go negotiates the TLS 1.3 suites itself and ignores CipherSuites for them,
// so when minVersion is TLS 1.3 or higher CipherSuites is left nil.
func ApplyCipherSuites(config *tls.Config, minVersion uint16) {
	if minVersion >= VersionTLS13 {
		config.CipherSuites = nil
		return
	}
	config.CipherSuites = CipherSuitesTLS12Secure
}

// BackendConfig builds the tls.Config used to dial a rule's backend when
// useSSL is set. Certificate verification is always disabled: this agent
// only ever reaches services the operator already trusts on their own LAN.
func BackendConfig(serverName string) *tls.Config {
	cfg := &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: true,
	}
	ApplyVersionProfile(cfg, ProfileSecure)
	ApplyCipherSuites(cfg, cfg.MinVersion)
	return cfg
}
