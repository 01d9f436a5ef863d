package system

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"

	copier "github.com/otiai10/copy"
)

const (
	DesktopPlatform = "darwin"
	LoopbackIP      = "127.0.0.1"
	// Nothing is sent, the address only selects the default route.
	DefaultProbeAddr = "8.8.8.8:80"
)

type Interface interface {
	Hostname() (string, error)
	// Source address of the default route, loopback if there is none.
	OutboundIP() string
	// Set local password through the batch password utility.
	ChangePassword(username, password string) error
	// Copy shadow file aside if a backup path is configured.
	BackupShadow() error
}

type Options struct {
	DryRun           bool
	ChpasswdPath     string
	ShadowPath       string
	ShadowBackupPath string
	ProbeAddr        string
	// Output for dry run messages, os.Stdout by default.
	Out io.Writer
}

type SystemOperator struct {
	dryRun     bool
	chpasswd   string
	shadowPath string
	backupPath string
	probeAddr  string
	out        io.Writer
}

func NewSystemOperator(opts Options) *SystemOperator {
	s := &SystemOperator{
		dryRun:     opts.DryRun || os.Getenv("USER_DRY_RUN") == "yes",
		chpasswd:   opts.ChpasswdPath,
		shadowPath: opts.ShadowPath,
		backupPath: opts.ShadowBackupPath,
		probeAddr:  opts.ProbeAddr,
		out:        opts.Out,
	}
	if s.chpasswd == "" {
		s.chpasswd = "chpasswd"
	}
	if s.shadowPath == "" {
		s.shadowPath = "/etc/shadow"
	}
	if s.probeAddr == "" {
		s.probeAddr = DefaultProbeAddr
	}
	if s.out == nil {
		s.out = os.Stdout
	}
	return s
}

func (s *SystemOperator) DryRun() bool {
	return s.dryRun
}

func (s *SystemOperator) Hostname() (string, error) {
	return os.Hostname()
}

func (s *SystemOperator) OutboundIP() string {
	return OutboundIP(s.probeAddr)
}

func (s *SystemOperator) ChangePassword(username, password string) error {
	// chpasswd reads "name:password" lines
	if username == "" || strings.ContainsAny(username, ":\n") {
		return fmt.Errorf("invalid user name %q", username)
	}
	if strings.Contains(password, "\n") {
		return fmt.Errorf("password for '%s' contains a newline", username)
	}

	if s.dryRun {
		fmt.Fprintf(s.out, "Change password for '%s' with %s\n", username, s.chpasswd)
		return nil
	}

	cmd := exec.Command(s.chpasswd)
	cmd.Stdin = strings.NewReader(username + ":" + password + "\n")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s: %v: %s", s.chpasswd, err, msg)
		}
		return fmt.Errorf("%s: %v", s.chpasswd, err)
	}

	return nil
}

func (s *SystemOperator) BackupShadow() error {
	if s.backupPath == "" {
		return nil
	}

	if s.dryRun {
		fmt.Fprintf(s.out, "Copy '%s' to '%s'\n", s.shadowPath, s.backupPath)
		return nil
	}

	err := copier.Copy(s.shadowPath, s.backupPath)
	if err != nil {
		return fmt.Errorf("copy '%s' to '%s': %w", s.shadowPath, s.backupPath, err)
	}

	return os.Chmod(s.backupPath, 0600)
}

// OutboundIP "connects" an UDP socket to probeAddr and returns its local
// address. Errors are not reported, the loopback address is returned instead.
func OutboundIP(probeAddr string) string {
	conn, err := net.Dial("udp4", probeAddr)
	if err != nil {
		return LoopbackIP
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil || addr.IP.IsUnspecified() {
		return LoopbackIP
	}
	return addr.IP.String()
}

// IsDesktopPlatform reports whether local accounts must be left alone on goos.
func IsDesktopPlatform(goos string) bool {
	return goos == DesktopPlatform
}
