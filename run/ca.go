package run

import (
	// Bundled CA certificates for binaries running in empty containers,
	// where the system pool is missing. Every binary goes through run.
	_ "golang.org/x/crypto/x509roots/fallback"
)
