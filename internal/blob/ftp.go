package blob

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jlaffaye/ftp"
)

const ftpTimeout = 30 * time.Second

// FTP uploads exports to a directory on an FTP server. Each upload opens
// its own connection.
type FTP struct {
	addr     string
	user     string
	password string
	dir      string
}

func NewFTP(addr, user, password, dir string) *FTP {
	if user == "" {
		user, password = "anonymous", "anonymous"
	}
	return &FTP{addr: addr, user: user, password: password, dir: dir}
}

func (f *FTP) Upload(ctx context.Context, key string, body io.Reader) error {
	conn, err := ftp.Dial(f.addr, ftp.DialWithTimeout(ftpTimeout), ftp.DialWithContext(ctx))
	if err != nil {
		return fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login(f.user, f.password); err != nil {
		return fmt.Errorf("ftp login: %w", err)
	}

	if f.dir != "" {
		if err := conn.ChangeDir(f.dir); err != nil {
			return fmt.Errorf("ftp cwd %s: %w", f.dir, err)
		}
	}

	if err := conn.Stor(key, body); err != nil {
		return fmt.Errorf("ftp stor %s: %w", key, err)
	}
	return nil
}

func (f *FTP) Bucket() string {
	return f.dir
}

func (f *FTP) Backend() string {
	return "FTP"
}
