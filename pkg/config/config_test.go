package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func Test_LoadConfig(t *testing.T) {
	cfg, err := LoadConfig("testdata/conf.yaml")

	require.NoError(t, err)
	require.Equal(t, "https://pam360.example.com:8282", cfg.URL)
	require.False(t, cfg.InsecureSkipVerify)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout())
	require.Equal(t, []string{"root", "deploy", "admin"}, cfg.TargetUsers)
	require.Equal(t, "Web Servers", cfg.ResourceGroupName)
	require.Equal(t, "305", cfg.ShareUserID)
	require.Equal(t, 20, cfg.PasswordLength)
	require.Equal(t, "./shadow.bak", cfg.ShadowBackupPath)

	// untouched keys keep defaults
	require.Equal(t, DefaultResourceType, cfg.ResourceType)
	require.Equal(t, DefaultPasswordPolicy, cfg.PasswordPolicy)
	require.Equal(t, DefaultShareAccess, cfg.ShareAccessType)
	require.Equal(t, DefaultChpasswd, cfg.ChpasswdPath)
}

func Test_LoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("testdata/absent.yaml")
	require.Error(t, err)
}

func Test_LoadConfig_UnknownKey(t *testing.T) {
	_, err := LoadConfig("testdata/unknown_key.yaml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "targetUser")
}

func Test_LoadConfigFromReader_Empty(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader("\n"))

	require.NoError(t, err)
	require.Equal(t, Default(), *cfg)
}

func Test_Schema(t *testing.T) {
	for name := range Schemas {
		s, err := LoadSchema(name)
		require.NoError(t, err, name)
		require.NotNil(t, s)
	}

	var tests = []struct {
		name    string
		obj     map[string]interface{}
		wantErr bool
	}{
		{"empty", map[string]interface{}{}, false},
		{"valid", map[string]interface{}{"targetUsers": []interface{}{"root"}, "passwordLength": float64(16)}, false},
		{"no users", map[string]interface{}{"targetUsers": []interface{}{}}, true},
		{"duplicate users", map[string]interface{}{"targetUsers": []interface{}{"root", "root"}}, true},
		{"zero length", map[string]interface{}{"passwordLength": float64(0)}, true},
		{"bad access type", map[string]interface{}{"shareAccessType": "owner"}, true},
		{"unknown key", map[string]interface{}{"pamUrl": "https://x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.obj, GetSchema(ConfigKind), "config")
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_Validate(t *testing.T) {
	cfg := Default()
	cfg.Token = "token"
	require.NoError(t, cfg.Validate())

	cfg.Token = ""
	cfg.TargetUsers = []string{"root", "root", ""}
	cfg.PasswordLength = 0
	cfg.Timeout = 0

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "token is empty")
	require.Contains(t, err.Error(), "duplicate target user 'root'")
	require.Contains(t, err.Error(), "empty target user name")
	require.Contains(t, err.Error(), "password length")
	require.Contains(t, err.Error(), "timeout")
}

func Test_FromViper(t *testing.T) {
	t.Setenv(TokenEnv, "env-token")
	t.Setenv(URLEnv, "https://env.example.com:8282")
	t.Setenv(DryRunEnv, "yes")
	t.Setenv(ConfigEnv, "testdata/conf.yaml")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	DefineFlags(flags)
	err := flags.Parse([]string{"--url", "https://flag.example.com", "-u", "root", "-u", "backup", "--timeout", "5s"})
	require.NoError(t, err)

	v, err := NewViper(flags)
	require.NoError(t, err)

	cfg, err := FromViper(v)
	require.NoError(t, err)

	require.Equal(t, "env-token", cfg.Token)
	require.Equal(t, "https://flag.example.com", cfg.URL)
	require.Equal(t, []string{"root", "backup"}, cfg.TargetUsers)
	require.Equal(t, 5*time.Second, cfg.RequestTimeout())
	require.True(t, cfg.DryRun)
	// from file, flag was not changed
	require.Equal(t, 20, cfg.PasswordLength)
	require.False(t, cfg.InsecureSkipVerify)
}

func Test_FromViper_NoToken(t *testing.T) {
	t.Setenv(TokenEnv, "")
	t.Setenv(ConfigEnv, "testdata/conf.yaml")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	DefineFlags(flags)
	require.NoError(t, flags.Parse(nil))

	v, err := NewViper(flags)
	require.NoError(t, err)

	_, err = FromViper(v)
	require.Error(t, err)
	require.Contains(t, err.Error(), TokenEnv)
}

func Test_LoadConfigFromReader_OnlyComments(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader("# managed by ansible\n"))

	require.NoError(t, err)
	require.Equal(t, Default(), *cfg)
}
