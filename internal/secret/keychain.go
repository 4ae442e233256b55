package secret

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const (
	keychainService = "scrapbook"
	itemNotFound    = 44 // security(1) exit status for a missing item
)

// KeychainStore keeps each ref as a generic password of the "scrapbook"
// service in the macOS login keychain, driven through the security CLI.
type KeychainStore struct {
	service string
	run     func(args ...string) ([]byte, error)
}

func NewKeychainStore() *KeychainStore {
	return &KeychainStore{service: keychainService, run: runSecurity}
}

func runSecurity(args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.Command("security", args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == itemNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("security %s: %s: %w", args[0], strings.TrimSpace(stderr.String()), err)
	}
	if err != nil {
		return nil, fmt.Errorf("security %s: %w", args[0], err)
	}
	return out, nil
}

// Set adds the item or replaces its value (-U).
func (k *KeychainStore) Set(ref string, value []byte) error {
	if _, err := k.run("add-generic-password", "-a", ref, "-s", k.service, "-w", string(value), "-U"); err != nil {
		return fmt.Errorf("keychain set %s: %w", ref, err)
	}
	return nil
}

func (k *KeychainStore) Get(ref string) ([]byte, error) {
	out, err := k.run("find-generic-password", "-a", ref, "-s", k.service, "-w")
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keychain get %s: %w", ref, err)
	}
	return bytes.TrimRight(out, "\r\n"), nil
}

func (k *KeychainStore) Delete(ref string) error {
	if _, err := k.run("delete-generic-password", "-a", ref, "-s", k.service); err != nil {
		return fmt.Errorf("keychain delete %s: %w", ref, err)
	}
	return nil
}
