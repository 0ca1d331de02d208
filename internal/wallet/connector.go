package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/term"
)

// Connector opens a Session from some key source
type Connector interface {
	// Name identifies the connector in config and logs
	Name() string

	// Embedded reports whether the key source is provided by the host
	// environment, in which case the connector is used without prompting
	Embedded() bool

	// Connect opens a session
	Connect(ctx context.Context) (*Session, error)
}

// EnvConnector signs with a hex private key handed over by the environment.
// It is the embedded-wallet path: when the key is present the session is
// opened automatically.
type EnvConnector struct {
	privateKey string
	chainID    *big.Int
}

// NewEnvConnector creates an EnvConnector
func NewEnvConnector(privateKey string, chainID *big.Int) *EnvConnector {
	return &EnvConnector{privateKey: privateKey, chainID: chainID}
}

// Name returns the connector name
func (c *EnvConnector) Name() string { return "env" }

// Embedded reports whether a key was provided
func (c *EnvConnector) Embedded() bool { return strings.TrimSpace(c.privateKey) != "" }

// Connect parses the key and opens a session
func (c *EnvConnector) Connect(ctx context.Context) (*Session, error) {
	if !c.Embedded() {
		return nil, fmt.Errorf("env connector: %w", ErrNoConnector)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(c.privateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("env connector: invalid private key: %w", err)
	}

	return NewSession(key, c.chainID, c.Name(), true), nil
}

// readPassword is a test seam for term.ReadPassword
var readPassword = term.ReadPassword

// KeystoreConnector decrypts a geth-style JSON keystore file
type KeystoreConnector struct {
	path       string
	passphrase string
	chainID    *big.Int
	prompt     io.Writer
}

// NewKeystoreConnector creates a KeystoreConnector. When passphrase is
// empty it is read from the terminal, with the prompt written to prompt.
func NewKeystoreConnector(path, passphrase string, chainID *big.Int, prompt io.Writer) *KeystoreConnector {
	return &KeystoreConnector{
		path:       path,
		passphrase: passphrase,
		chainID:    chainID,
		prompt:     prompt,
	}
}

// Name returns the connector name
func (c *KeystoreConnector) Name() string { return "keystore" }

// Embedded is always false: unlocking a keystore is a user action
func (c *KeystoreConnector) Embedded() bool { return false }

// Connect decrypts the keystore and opens a session
func (c *KeystoreConnector) Connect(ctx context.Context) (*Session, error) {
	if c.path == "" {
		return nil, fmt.Errorf("keystore connector: %w", ErrNoConnector)
	}

	keyJSON, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("keystore connector: failed to read keystore: %w", err)
	}

	passphrase := c.passphrase
	if passphrase == "" {
		passphrase, err = c.askPassphrase()
		if err != nil {
			return nil, err
		}
	}

	key, err := decryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, err
	}

	return NewSession(key, c.chainID, c.Name(), false), nil
}

func (c *KeystoreConnector) askPassphrase() (string, error) {
	w := c.prompt
	if w == nil {
		w = os.Stderr
	}
	if _, err := fmt.Fprint(w, "Keystore passphrase: "); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("keystore connector: failed to read passphrase: %w", err)
	}
	return string(pw), nil
}

func decryptKey(keyJSON []byte, passphrase string) (*ecdsa.PrivateKey, error) {
	key, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, fmt.Errorf("keystore connector: failed to decrypt key: %w", err)
	}
	return key.PrivateKey, nil
}

// Connect opens a session with the named connector
func Connect(ctx context.Context, connectors []Connector, name string) (*Session, error) {
	for _, c := range connectors {
		if c.Name() != name {
			continue
		}
		session, err := c.Connect(ctx)
		if err != nil {
			return nil, err
		}
		slog.Info("Wallet connected",
			"connector", c.Name(),
			"address", session.Address().Hex(),
		)
		return session, nil
	}
	return nil, fmt.Errorf("connector %q: %w", name, ErrNoConnector)
}

// AutoConnect opens a session with the first embedded connector, falling
// back to the first connector that connects successfully
func AutoConnect(ctx context.Context, connectors []Connector) (*Session, error) {
	for _, c := range connectors {
		if c.Embedded() {
			return Connect(ctx, connectors, c.Name())
		}
	}

	var errs []error
	for _, c := range connectors {
		session, err := Connect(ctx, connectors, c.Name())
		if err == nil {
			return session, nil
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, ErrNoConnector
	}
	return nil, errors.Join(errs...)
}
