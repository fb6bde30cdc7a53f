// Package tunnel dials remote analyzers through an SSH jump host, for
// deployments where the analyzer port is not reachable directly.
package tunnel

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// Config describes the SSH endpoint the tunnel runs through.
type Config struct {
	Addr     string // host:port of the SSH server
	User     string
	Password string
	KeyPath  string
	Timeout  time.Duration
}

// Dialer opens TCP connections through an SSH connection. The SSH client is
// established lazily on the first dial and reused afterwards.
type Dialer struct {
	mu     sync.Mutex
	cfg    Config
	client *ssh.Client
}

// NewDialer validates the configuration and prepares a dialer.
func NewDialer(cfg Config) (*Dialer, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("tunnel: ssh address is required")
	}
	if cfg.User == "" {
		cfg.User = "root"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Dialer{cfg: cfg}, nil
}

// DialContext opens a connection to addr through the tunnel. It matches the
// signature expected by the analyzer dial options.
func (d *Dialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	client, err := d.connect(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := client.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("tunnel: dial %s: %w", addr, err)
	}
	return conn, nil
}

// Dial is DialContext without cancellation, matching the analyzer dial
// option signature.
func (d *Dialer) Dial(network, addr string) (net.Conn, error) {
	return d.DialContext(context.Background(), network, addr)
}

// Close tears down the SSH connection. Later dials reconnect.
func (d *Dialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}

func (d *Dialer) connect(ctx context.Context) (*ssh.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client != nil {
		return d.client, nil
	}

	auth := []ssh.AuthMethod{}
	if d.cfg.Password != "" {
		auth = append(auth, ssh.Password(d.cfg.Password))
	}
	if d.cfg.KeyPath != "" {
		key, err := os.ReadFile(d.cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("tunnel: read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("tunnel: parse ssh key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("tunnel: no ssh password or key configured")
	}

	config := &ssh.ClientConfig{
		User:            d.cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         d.cfg.Timeout,
	}

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", d.cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("tunnel: dial ssh: %w", err)
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, d.cfg.Addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("tunnel: ssh handshake: %w", err)
	}

	d.client = ssh.NewClient(clientConn, chans, reqs)
	return d.client, nil
}
