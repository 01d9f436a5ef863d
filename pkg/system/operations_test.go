package system

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeChpasswd writes a script that appends stdin to a log and fails for user "nobody".
func fakeChpasswd(t *testing.T) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}

	dir := t.TempDir()
	logPath := filepath.Join(dir, "chpasswd.log")
	script := filepath.Join(dir, "chpasswd")
	content := `#!/bin/sh
line=$(cat)
case "$line" in
  nobody:*) echo "chpasswd: line 1: user 'nobody' does not exist" >&2; exit 1 ;;
esac
echo "$line" >> ` + logPath + "\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0755))
	return script, logPath
}

func Test_ChangePassword(t *testing.T) {
	t.Setenv("USER_DRY_RUN", "")
	script, logPath := fakeChpasswd(t)
	op := NewSystemOperator(Options{ChpasswdPath: script})

	require.NoError(t, op.ChangePassword("root", "Abc123"))
	require.NoError(t, op.ChangePassword("admin", "Def456"))

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Equal(t, "root:Abc123\nadmin:Def456\n", string(data))

	err = op.ChangePassword("nobody", "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func Test_ChangePassword_InvalidInput(t *testing.T) {
	op := NewSystemOperator(Options{ChpasswdPath: "/nonexistent/chpasswd"})

	require.Error(t, op.ChangePassword("", "x"))
	require.Error(t, op.ChangePassword("ro:ot", "x"))
	require.Error(t, op.ChangePassword("root", "a\nb"))
}

func Test_ChangePassword_MissingUtility(t *testing.T) {
	t.Setenv("USER_DRY_RUN", "")
	op := NewSystemOperator(Options{ChpasswdPath: filepath.Join(t.TempDir(), "chpasswd")})

	require.Error(t, op.ChangePassword("root", "x"))
}

func Test_DryRun(t *testing.T) {
	out := new(bytes.Buffer)
	dir := t.TempDir()
	op := NewSystemOperator(Options{
		DryRun:           true,
		ChpasswdPath:     "/nonexistent/chpasswd",
		ShadowPath:       filepath.Join(dir, "shadow"),
		ShadowBackupPath: filepath.Join(dir, "shadow.bak"),
		Out:              out,
	})

	require.True(t, op.DryRun())
	require.NoError(t, op.ChangePassword("root", "secret"))
	require.NoError(t, op.BackupShadow())

	require.Contains(t, out.String(), "Change password for 'root'")
	require.NotContains(t, out.String(), "secret")
	_, err := os.Stat(filepath.Join(dir, "shadow.bak"))
	require.True(t, os.IsNotExist(err))
}

func Test_DryRunFromEnv(t *testing.T) {
	t.Setenv("USER_DRY_RUN", "yes")
	require.True(t, NewSystemOperator(Options{}).DryRun())
}

func Test_BackupShadow(t *testing.T) {
	t.Setenv("USER_DRY_RUN", "")
	dir := t.TempDir()
	shadow := filepath.Join(dir, "shadow")
	backup := filepath.Join(dir, "backup", "shadow.bak")
	require.NoError(t, os.WriteFile(shadow, []byte("root:$6$abc:19000:0:99999:7:::\n"), 0640))

	op := NewSystemOperator(Options{ShadowPath: shadow, ShadowBackupPath: backup})
	require.NoError(t, op.BackupShadow())

	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	require.Equal(t, "root:$6$abc:19000:0:99999:7:::\n", string(data))

	info, err := os.Stat(backup)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func Test_BackupShadow_Disabled(t *testing.T) {
	op := NewSystemOperator(Options{ShadowPath: "/nonexistent/shadow"})
	require.NoError(t, op.BackupShadow())
}

func Test_OutboundIP(t *testing.T) {
	require.Equal(t, "127.0.0.1", OutboundIP("127.0.0.1:9"))
	require.Equal(t, LoopbackIP, OutboundIP("not an address"))
	require.NotEmpty(t, NewSystemOperator(Options{}).OutboundIP())
}

func Test_IsDesktopPlatform(t *testing.T) {
	require.True(t, IsDesktopPlatform("darwin"))
	require.False(t, IsDesktopPlatform("linux"))
	require.False(t, IsDesktopPlatform("freebsd"))
}

func Test_Hostname(t *testing.T) {
	name, err := NewSystemOperator(Options{}).Hostname()
	require.NoError(t, err)
	require.NotEmpty(t, name)
}
