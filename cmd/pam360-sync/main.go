package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flant/pam360-sync/pkg/config"
	"github.com/flant/pam360-sync/pkg/log"
	"github.com/flant/pam360-sync/pkg/pam360"
	"github.com/flant/pam360-sync/pkg/sync"
	"github.com/flant/pam360-sync/pkg/system"
)

func main() {
	rootCmd := NewRootCMD()
	if err := rootCmd.Execute(); err != nil {
		// already logged by the sync
		if !errors.Is(err, sync.ErrResourceIDNotResolved) {
			logrus.Error(err)
		}
		os.Exit(1)
	}
}

func NewRootCMD() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pam360-sync",
		Short: "Rotate local account passwords and store them in PAM360",
		Long: `Generates new passwords for the target users, stores them in PAM360 under
the resource named after this host (the resource is created when missing),
shares the resource and then applies the passwords to local accounts.

Configure run by passing environment variables:
PAM_TOKEN      // PAM360 API auth token
PAM_URL        // example: https://10.0.0.14:8282
PAM_CONFIG     // example: /etc/pam360-sync/config.yaml
USER_DRY_RUN   // "yes" prints local password changes instead of applying them
`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	config.DefineFlags(cmd.Flags())
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	v, err := config.NewViper(cmd.Flags())
	if err != nil {
		return err
	}

	log.Setup(os.Stdout, v.GetBool(config.DebugFlagName))

	cfg, err := config.FromViper(v)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if cfg.InsecureSkipVerify {
		logrus.Debugf("TLS verification for %s is disabled", cfg.URL)
	}

	client, err := pam360.NewClient(pam360.Settings{
		URL:                cfg.URL,
		Token:              cfg.Token,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Timeout:            cfg.RequestTimeout(),
	})
	if err != nil {
		return err
	}

	sysOp := system.NewSystemOperator(system.Options{
		DryRun:           cfg.DryRun,
		ChpasswdPath:     cfg.ChpasswdPath,
		ShadowPath:       cfg.ShadowPath,
		ShadowBackupPath: cfg.ShadowBackupPath,
	})

	return sync.NewPasswordSync(cfg, client, sysOp).Run(context.Background())
}
