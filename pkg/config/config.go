package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"sigs.k8s.io/yaml"

	"github.com/flant/pam360-sync/pkg/util"
)

/*
url: https://pam360.example.com:8282
insecureSkipVerify: true
timeout: 30s
targetUsers: [root, admin]
resourceGroup: Linux Servers
shareUserId: "1"
shareAccessType: fullaccess
passwordLength: 14
shadowBackup: /var/backups/shadow.pam360-sync
*/
type Config struct {
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
	// PAM360 appliances usually serve self-signed certificates.
	InsecureSkipVerify bool     `json:"insecureSkipVerify"`
	Timeout            Duration `json:"timeout"`

	TargetUsers       []string `json:"targetUsers"`
	ResourceGroupName string   `json:"resourceGroup"`
	ResourceType      string   `json:"resourceType"`
	PasswordPolicy    string   `json:"passwordPolicy"`
	PasswordLength    int      `json:"passwordLength"`
	ResetType         string   `json:"resetType"`
	ResetReason       string   `json:"resetReason"`
	ShareUserID       string   `json:"shareUserId"`
	ShareAccessType   string   `json:"shareAccessType"`

	ChpasswdPath     string `json:"chpasswd"`
	ShadowPath       string `json:"shadowPath"`
	ShadowBackupPath string `json:"shadowBackup,omitempty"`
	DryRun           bool   `json:"dryRun"`
}

const (
	DefaultConfigFile     = "/etc/pam360-sync/config.yaml"
	DefaultURL            = "https://10.0.0.14:8282"
	DefaultTimeout        = 30 * time.Second
	DefaultResourceGroup  = "Linux Servers"
	DefaultResourceType   = "Linux"
	DefaultPasswordPolicy = "Strong"
	DefaultPasswordLength = 14
	DefaultResetType      = "LOCAL"
	DefaultResetReason    = "Rotated via pam360-sync"
	DefaultShareUserID    = "1"
	DefaultShareAccess    = "fullaccess"
	DefaultChpasswd       = "chpasswd"
	DefaultShadowPath     = "/etc/shadow"
)

var DefaultTargetUsers = []string{"root", "admin"}

func Default() Config {
	return Config{
		URL:                DefaultURL,
		InsecureSkipVerify: true,
		Timeout:            Duration(DefaultTimeout),
		TargetUsers:        append([]string(nil), DefaultTargetUsers...),
		ResourceGroupName:  DefaultResourceGroup,
		ResourceType:       DefaultResourceType,
		PasswordPolicy:     DefaultPasswordPolicy,
		PasswordLength:     DefaultPasswordLength,
		ResetType:          DefaultResetType,
		ResetReason:        DefaultResetReason,
		ShareUserID:        DefaultShareUserID,
		ShareAccessType:    DefaultShareAccess,
		ChpasswdPath:       DefaultChpasswd,
		ShadowPath:         DefaultShadowPath,
	}
}

// LoadConfig reads the config file over the defaults. An empty fileName
// means the default location, which may be absent.
func LoadConfig(fileName string) (Config, error) {
	if fileName == "" {
		exists, err := util.FileExists(DefaultConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("check config '%s': %w", DefaultConfigFile, err)
		}
		if !exists {
			return Default(), nil
		}
		fileName = DefaultConfigFile
	}

	cfg, err := LoadConfigFromFile(fileName)
	if err != nil {
		return Config{}, fmt.Errorf("load config '%s': %w", fileName, err)
	}

	cfg.URL = util.FirstNonEmptyString(cfg.URL, DefaultURL)
	return *cfg, nil
}

func LoadConfigFromFile(fileName string) (*Config, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", fileName, err)
	}
	defer f.Close()

	return LoadConfigFromReader(f)
}

// LoadConfigFromReader validates the document against the config schema and
// unmarshals it over the defaults.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(r)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if len(bytes.TrimSpace(buf.Bytes())) == 0 {
		return &cfg, nil
	}

	var obj map[string]interface{}
	err = yaml.Unmarshal(buf.Bytes(), &obj)
	if err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}
	// only comments
	if obj == nil {
		return &cfg, nil
	}

	err = ValidateConfig(obj, GetSchema(ConfigKind), "config")
	if err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	err = yaml.Unmarshal(buf.Bytes(), &cfg)
	if err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	return &cfg, nil
}

// Validate checks the assembled config, after env and flags were applied.
func (c Config) Validate() error {
	var allErrs *multierror.Error

	if c.URL == "" {
		allErrs = multierror.Append(allErrs, fmt.Errorf("url is empty"))
	}
	if c.Token == "" {
		allErrs = multierror.Append(allErrs, fmt.Errorf("token is empty, set %s", TokenEnv))
	}
	if len(c.TargetUsers) == 0 {
		allErrs = multierror.Append(allErrs, fmt.Errorf("no target users"))
	}
	seen := make(map[string]struct{}, len(c.TargetUsers))
	for _, user := range c.TargetUsers {
		if user == "" {
			allErrs = multierror.Append(allErrs, fmt.Errorf("empty target user name"))
			continue
		}
		if _, has := seen[user]; has {
			allErrs = multierror.Append(allErrs, fmt.Errorf("duplicate target user '%s'", user))
		}
		seen[user] = struct{}{}
	}
	if c.PasswordLength <= 0 {
		allErrs = multierror.Append(allErrs, fmt.Errorf("password length must be positive, got %d", c.PasswordLength))
	}
	if c.Timeout <= 0 {
		allErrs = multierror.Append(allErrs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.ShareUserID == "" {
		allErrs = multierror.Append(allErrs, fmt.Errorf("share user id is empty"))
	}

	return allErrs.ErrorOrNil()
}

// Duration is a time.Duration written as "30s" in config files.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration should be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
