// Package sshcreds creates the deterministic remote-login credentials the
// test suite's remote-login integrations depend on, and waits for the local
// login service to expose its host keys after a restart.
package sshcreds

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
)

// Keypair is a generated ed25519 keypair in OpenSSH encoding.
type Keypair struct {
	PrivatePath   string
	PublicPath    string
	AuthorizedKey []byte
	Fingerprint   string
}

// Generate creates an ed25519 keypair under dir with OpenSSH encoding and
// the permissions sshd requires (0700 dir, 0600 private key, 0644 public
// key). Existing key files are overwritten so repeated bootstraps converge
// on the same layout.
func Generate(dir, name string) (*Keypair, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create ssh directory: %w", err)
	}
	// MkdirAll leaves existing dirs alone; force the mode either way
	if err := os.Chmod(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to set ssh directory permissions: %w", err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to convert public key: %w", err)
	}

	privatePath := filepath.Join(dir, name)
	if err := os.WriteFile(privatePath, pem.EncodeToMemory(block), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write private key: %w", err)
	}

	authorizedKey := ssh.MarshalAuthorizedKey(sshPub)
	publicPath := privatePath + ".pub"
	// #nosec G306 - public keys are world-readable
	if err := os.WriteFile(publicPath, authorizedKey, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write public key: %w", err)
	}

	hash := sha256.Sum256(sshPub.Marshal())
	fingerprint := base58.Encode(hash[:])

	log.Info().
		Str("path", privatePath).
		Str("fingerprint", fingerprint).
		Msg("generated login keypair")

	return &Keypair{
		PrivatePath:   privatePath,
		PublicPath:    publicPath,
		AuthorizedKey: authorizedKey,
		Fingerprint:   fingerprint,
	}, nil
}

// Authorize appends the public half to authorized_keys in dir and fixes its
// permissions so sshd will accept it.
func Authorize(dir string, authorizedKey []byte) error {
	path := filepath.Join(dir, "authorized_keys")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open authorized_keys: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(authorizedKey); err != nil {
		return fmt.Errorf("failed to append authorized key: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to set authorized_keys permissions: %w", err)
	}
	return nil
}

// RecordKnownHosts writes the observed host keys to known_hosts in dir,
// replacing any previous content so stale keys from an earlier service
// start cannot linger.
func RecordKnownHosts(dir string, lines []string) error {
	path := filepath.Join(dir, "known_hosts")
	var buf []byte
	for _, line := range lines {
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return fmt.Errorf("failed to write known_hosts: %w", err)
	}
	return nil
}
