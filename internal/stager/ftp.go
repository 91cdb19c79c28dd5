package stager

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/couchcryptid/surge-forecast-etl/internal/domain"
)

// FTPConn is the slice of an FTP session the stager needs. The production
// implementation wraps a jlaffaye/ftp server connection; tests substitute
// a fake.
type FTPConn interface {
	Login(user, password string) error
	ChangeDir(path string) error
	NameList(path string) ([]string, error)
	Retr(path string) (io.ReadCloser, error)
	Quit() error
}

// DialFTP opens a binary-mode FTP connection. It is the default Dial of
// FTPStager.
func DialFTP(addr string) (FTPConn, error) {
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("dial ftp %s: %w", addr, err)
	}
	return &serverConn{conn}, nil
}

// serverConn adapts *ftp.ServerConn to FTPConn and forces binary mode on
// login, since the wind fields are NetCDF binaries.
type serverConn struct {
	conn *ftp.ServerConn
}

func (c *serverConn) Login(user, password string) error {
	if err := c.conn.Login(user, password); err != nil {
		return err
	}
	return c.conn.Type(ftp.TransferTypeBinary)
}

func (c *serverConn) ChangeDir(path string) error          { return c.conn.ChangeDir(path) }
func (c *serverConn) NameList(path string) ([]string, error) { return c.conn.NameList(path) }
func (c *serverConn) Quit() error                          { return c.conn.Quit() }

func (c *serverConn) Retr(path string) (io.ReadCloser, error) {
	return c.conn.Retr(path)
}

// FTPStager retrieves the wind-field source file over FTP into managed
// local storage. One session per run: dial, cwd, list, retrieve, quit.
type FTPStager struct {
	Addr       string
	User       string
	Password   string
	RemotePath string
	DestRoot   string
	Name       func(domain.Cycle) string
	Dial       func(addr string) (FTPConn, error)
	Files      FileRegistry
	Logger     *slog.Logger
}

// Stage retrieves the expected file for the cycle. A target name missing
// from the remote listing means "not yet published" and returns (nil,
// nil); connection and login failures are errors.
func (s *FTPStager) Stage(ctx context.Context, taskID string, cycle domain.Cycle) (*domain.StagedFile, error) {
	name := s.Name(cycle)

	dial := s.Dial
	if dial == nil {
		dial = DialFTP
	}
	conn, err := dial(s.Addr)
	if err != nil {
		return nil, err
	}
	defer conn.Quit() //nolint:errcheck // session teardown is best-effort

	if err := conn.Login(s.User, s.Password); err != nil {
		return nil, fmt.Errorf("ftp login %s: %w", s.Addr, err)
	}
	if err := conn.ChangeDir(s.RemotePath); err != nil {
		return nil, fmt.Errorf("ftp cwd %s: %w", s.RemotePath, err)
	}

	names, err := conn.NameList(".")
	if err != nil {
		return nil, fmt.Errorf("ftp list %s: %w", s.RemotePath, err)
	}
	found := false
	for _, n := range names {
		if filepath.Base(n) == name {
			found = true
			break
		}
	}
	if !found {
		s.Logger.Info("wind source not in ftp listing", "file", name, "task_id", taskID)
		return nil, nil
	}

	staged := &domain.StagedFile{Root: s.DestRoot, RelativePath: cycle.RelativePath(), Name: name}
	if err := os.MkdirAll(filepath.Dir(staged.FullPath()), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if err := s.retrieve(conn, name, staged.FullPath()); err != nil {
		return nil, err
	}

	if err := s.Files.RegisterTaskFile(ctx, taskID, staged.RelativePath, staged.Name); err != nil {
		return nil, err
	}
	s.Logger.Info("retrieved wind source", "file", name, "task_id", taskID)
	return staged, nil
}

func (s *FTPStager) retrieve(conn FTPConn, name, destPath string) error {
	resp, err := conn.Retr(name)
	if err != nil {
		return fmt.Errorf("ftp retrieve %s: %w", name, err)
	}
	defer resp.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, resp); err != nil {
		out.Close()
		return fmt.Errorf("download to %s: %w", destPath, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", destPath, err)
	}
	return nil
}
