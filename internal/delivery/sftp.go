package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"github.com/ubuntu/decorate"
	"golang.org/x/crypto/ssh"

	"github.com/JonMunkholm/permits/internal/logging"
)

// ErrSFTPNotConfigured is returned when no SFTP host is set.
var ErrSFTPNotConfigured = errors.New("sftp: host not configured")

// SFTPConfig locates the permit system's drop box.
type SFTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	HostKey   string // authorized_keys format; empty disables host key checking
	RemoteDir string
	Timeout   time.Duration
}

// SFTP uploads feeds to and downloads result files from the drop box. Each
// call opens its own connection.
type SFTP struct {
	cfg SFTPConfig
}

// NewSFTP returns a transfer client for cfg.
func NewSFTP(cfg SFTPConfig) *SFTP {
	return &SFTP{cfg: cfg}
}

// Upload writes data to name in the remote directory.
func (s *SFTP) Upload(ctx context.Context, name string, data []byte) (err error) {
	defer decorate.OnError(&err, "sftp upload %s", name)

	client, closeFn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	f, err := client.Create(s.remotePath(name))
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	logging.WithFields(ctx, "host", s.cfg.Host, "path", s.remotePath(name)).Info("uploaded file", "bytes", len(data))
	return nil
}

// Download reads name from the remote directory. A missing file yields an
// error matching fs.ErrNotExist.
func (s *SFTP) Download(ctx context.Context, name string) (_ []byte, err error) {
	defer decorate.OnError(&err, "sftp download %s", name)

	client, closeFn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	f, err := client.Open(s.remotePath(name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	logging.WithFields(ctx, "host", s.cfg.Host, "path", s.remotePath(name)).Info("downloaded file", "bytes", len(data))
	return data, nil
}

func (s *SFTP) remotePath(name string) string {
	if s.cfg.RemoteDir == "" {
		return name
	}
	return path.Join(s.cfg.RemoteDir, name)
}

func (s *SFTP) connect(ctx context.Context) (*sftp.Client, func(), error) {
	if s.cfg.Host == "" {
		return nil, nil, ErrSFTPNotConfigured
	}

	hostKey, err := hostKeyCallback(s.cfg.HostKey)
	if err != nil {
		return nil, nil, err
	}
	if s.cfg.HostKey == "" {
		logging.FromContext(ctx).Warn("sftp host key not configured, skipping verification", "host", s.cfg.Host)
	}

	sshCfg := &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(s.cfg.Password)},
		HostKeyCallback: hostKey,
		Timeout:         s.cfg.Timeout,
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	dialer := net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("ssh handshake: %w", err)
	}
	sshClient := ssh.NewClient(c, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, nil, fmt.Errorf("sftp session: %w", err)
	}

	return client, func() {
		client.Close()
		sshClient.Close()
	}, nil
}

func hostKeyCallback(key string) (ssh.HostKeyCallback, error) {
	if key == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("parse host key: %w", err)
	}
	return ssh.FixedHostKey(pub), nil
}
