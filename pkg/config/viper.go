package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Environment variables.
const (
	TokenEnv  = "PAM_TOKEN"
	URLEnv    = "PAM_URL"
	ConfigEnv = "PAM_CONFIG"
	DryRunEnv = "USER_DRY_RUN" // "yes" enables dry run
)

const (
	ConfigFlagName             = "config"
	URLFlagName                = "url"
	TokenFlagName              = "token"
	InsecureSkipVerifyFlagName = "insecure-skip-verify"
	TimeoutFlagName            = "timeout"
	UserFlagName               = "user"
	ShareUserIDFlagName        = "share-user-id"
	ResourceGroupFlagName      = "resource-group"
	PasswordLengthFlagName     = "password-length"
	DryRunFlagName             = "dry-run"
	ShadowBackupFlagName       = "shadow-backup"
	DebugFlagName              = "debug"
)

func DefineFlags(flags *pflag.FlagSet) {
	flags.StringP(ConfigFlagName, "c", "",
		fmt.Sprintf("path to config file, %s is used if it exists", DefaultConfigFile))
	flags.String(URLFlagName, "",
		fmt.Sprintf("PAM360 base url, by default %s", DefaultURL))
	flags.String(TokenFlagName, "",
		fmt.Sprintf("PAM360 API auth token, prefer %s env", TokenEnv))
	flags.Bool(InsecureSkipVerifyFlagName, true,
		"skip TLS certificate and hostname verification of PAM360")
	flags.Duration(TimeoutFlagName, DefaultTimeout,
		"timeout for a single PAM360 API call")
	flags.StringSliceP(UserFlagName, "u", nil,
		"local user to rotate, can be repeated (default root,admin)")
	flags.String(ShareUserIDFlagName, "",
		fmt.Sprintf("PAM360 user id to share the resource with (default %s)", DefaultShareUserID))
	flags.String(ResourceGroupFlagName, "",
		fmt.Sprintf("resource group for a newly created resource (default %q)", DefaultResourceGroup))
	flags.Int(PasswordLengthFlagName, DefaultPasswordLength,
		"length of generated passwords")
	flags.Bool(DryRunFlagName, false,
		fmt.Sprintf("print local password changes instead of applying them, same as %s=yes", DryRunEnv))
	flags.String(ShadowBackupFlagName, "",
		"copy shadow file to this path before changing local passwords")
	flags.Bool(DebugFlagName, false, "enable debug logging")
}

// NewViper binds defined flags and environment variables. Flags win over env.
func NewViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	envs := map[string]string{
		ConfigFlagName: ConfigEnv,
		URLFlagName:    URLEnv,
		TokenFlagName:  TokenEnv,
		DryRunFlagName: DryRunEnv,
	}
	for key, env := range envs {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	return v, nil
}

// FromViper loads the config file and applies env and flag overrides on top.
func FromViper(v *viper.Viper) (Config, error) {
	cfg, err := LoadConfig(v.GetString(ConfigFlagName))
	if err != nil {
		return Config{}, err
	}

	if v.IsSet(URLFlagName) {
		cfg.URL = v.GetString(URLFlagName)
	}
	if v.IsSet(TokenFlagName) {
		cfg.Token = v.GetString(TokenFlagName)
	}
	if v.IsSet(InsecureSkipVerifyFlagName) {
		cfg.InsecureSkipVerify = v.GetBool(InsecureSkipVerifyFlagName)
	}
	if v.IsSet(TimeoutFlagName) {
		cfg.Timeout = Duration(v.GetDuration(TimeoutFlagName))
	}
	if v.IsSet(UserFlagName) {
		cfg.TargetUsers = v.GetStringSlice(UserFlagName)
	}
	if v.IsSet(ShareUserIDFlagName) {
		cfg.ShareUserID = v.GetString(ShareUserIDFlagName)
	}
	if v.IsSet(ResourceGroupFlagName) {
		cfg.ResourceGroupName = v.GetString(ResourceGroupFlagName)
	}
	if v.IsSet(PasswordLengthFlagName) {
		cfg.PasswordLength = v.GetInt(PasswordLengthFlagName)
	}
	if v.IsSet(ShadowBackupFlagName) {
		cfg.ShadowBackupPath = v.GetString(ShadowBackupFlagName)
	}
	if v.IsSet(DryRunFlagName) {
		cfg.DryRun = parseYesBool(v.GetString(DryRunFlagName))
	}

	return cfg, cfg.Validate()
}

// parseYesBool accepts the "yes" convention of USER_DRY_RUN as well as Go bools.
func parseYesBool(s string) bool {
	if s == "yes" {
		return true
	}
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout)
}
