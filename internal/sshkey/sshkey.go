// Package sshkey normalizes and validates SSH public keys destined for
// VM authorized_keys.
package sshkey

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Normalize restores a missing algorithm prefix on a bare base64 key
// (a common copy-paste accident) and validates the result as an
// authorized key.
func Normalize(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("ssh public key is empty")
	}

	if !strings.HasPrefix(key, "ssh-") && !strings.HasPrefix(key, "ecdsa-") && strings.HasPrefix(key, "AAAA") {
		switch {
		case strings.HasPrefix(key, "AAAAC3NzaC1lZDI1NTE5"):
			key = "ssh-ed25519 " + key
		case strings.HasPrefix(key, "AAAAB3NzaC1yc2E"):
			key = "ssh-rsa " + key
		case strings.HasPrefix(key, "AAAAE2VjZHNhLXNoYTItbmlzdHA"):
			// The curve name is embedded in the base64 blob.
			switch {
			case strings.Contains(key, "bmlzdHAyNTY"):
				key = "ecdsa-sha2-nistp256 " + key
			case strings.Contains(key, "bmlzdHAzODQ"):
				key = "ecdsa-sha2-nistp384 " + key
			case strings.Contains(key, "bmlzdHA1MjE"):
				key = "ecdsa-sha2-nistp521 " + key
			}
		}
	}

	if _, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key)); err != nil {
		return "", fmt.Errorf("invalid ssh public key: %w", err)
	}
	return key, nil
}
