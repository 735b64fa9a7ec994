// Package utils provides internal utility functions.
package utils

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// SSHKeyFingerprint parses a single authorized_keys line and returns its
// SHA256 fingerprint. Leading options and trailing comments are accepted.
func SSHKeyFingerprint(authorizedKey string) (string, error) {
	line := strings.TrimSpace(authorizedKey)
	if line == "" {
		return "", fmt.Errorf("empty ssh public key")
	}
	key, _, _, rest, err := ssh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return "", fmt.Errorf("parse ssh public key: %w", err)
	}
	if len(strings.TrimSpace(string(rest))) > 0 {
		return "", fmt.Errorf("expected a single ssh public key, got more than one line")
	}
	return ssh.FingerprintSHA256(key), nil
}

// NormalizeSSHKey returns the key in canonical "type base64" form without
// options or comment, as Azure expects in linuxConfiguration.ssh.publicKeys.
func NormalizeSSHKey(authorizedKey string) (string, error) {
	key, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(strings.TrimSpace(authorizedKey)))
	if err != nil {
		return "", fmt.Errorf("parse ssh public key: %w", err)
	}
	out := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(key)))
	if comment != "" {
		out += " " + comment
	}
	return out, nil
}
