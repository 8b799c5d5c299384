package models

import (
	"fmt"
	"strings"
)

// AgentIdentity is the per-process probe configuration handed to the transport.
// It is built once at startup and never mutated.
type AgentIdentity struct {
	ServiceURL       string
	Token            string
	TrustedAuthority string
	Platform         string
}

// Platform returns the "<os>-<arch>" tag sent in the dos header.
func Platform(goos, goarch string) string {
	arch := goarch
	switch goarch {
	case "amd64":
		arch = "x86_64"
	case "386":
		arch = "x86"
	}
	return strings.ToLower(fmt.Sprintf("%s-%s", goos, arch))
}
