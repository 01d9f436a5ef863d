package sync

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/flant/pam360-sync/pkg/config"
	"github.com/flant/pam360-sync/pkg/log"
	"github.com/flant/pam360-sync/pkg/pam360"
	"github.com/flant/pam360-sync/pkg/password"
	"github.com/flant/pam360-sync/pkg/system"
)

// ErrResourceIDNotResolved means a freshly created resource could not be found by name.
var ErrResourceIDNotResolved = errors.New("failed to get resource ID")

type PAM interface {
	ListResources(ctx context.Context) ([]pam360.Resource, pam360.Result)
	ListAccounts(ctx context.Context, resourceID pam360.ID) ([]pam360.Account, pam360.Result)
	ResetAccountPassword(ctx context.Context, resourceID, accountID pam360.ID, reset pam360.PasswordReset) pam360.Result
	CreateAccounts(ctx context.Context, resourceID pam360.ID, accounts []pam360.NewAccount) pam360.Result
	CreateResource(ctx context.Context, resource pam360.NewResource) pam360.Result
	ResourceIDByName(ctx context.Context, name string) (pam360.ID, pam360.Result)
	ShareResource(ctx context.Context, resourceID pam360.ID, share pam360.Share) pam360.Result
}

type PasswordSync struct {
	Config    config.Config
	PAM       PAM
	System    system.Interface
	Generator *password.Generator
	// Platform is runtime.GOOS unless overridden.
	Platform string
}

func NewPasswordSync(cfg config.Config, pam PAM, sysOp system.Interface) *PasswordSync {
	return &PasswordSync{
		Config:    cfg,
		PAM:       pam,
		System:    sysOp,
		Generator: password.NewGenerator(cfg.PasswordLength, nil),
		Platform:  runtime.GOOS,
	}
}

// Run rotates passwords of all target users. API and local failures are
// logged and skipped; only an unresolvable resource id stops the run.
func (p *PasswordSync) Run(ctx context.Context) error {
	users := p.Config.TargetUsers
	if len(users) == 0 {
		return fmt.Errorf("no target users")
	}

	ctx = log.WithFields(ctx, map[string]interface{}{"run": uuid.NewString()})

	hostname, err := p.System.Hostname()
	if err != nil {
		return fmt.Errorf("get hostname: %w", err)
	}
	ip := p.System.OutboundIP()
	ctx = log.WithFields(ctx, map[string]interface{}{"host": hostname})

	log.Infof(ctx)("System: %s (%s)", hostname, ip)
	log.Infof(ctx)("Platform: %s", p.Platform)

	log.Infof(ctx)("Generating passwords for target users...")
	passwords := p.Generator.GenerateFor(users)
	for _, user := range users {
		log.Infof(ctx)("Generated password for %s", user)
	}

	if p.localChangesAllowed() {
		err = p.System.BackupShadow()
		if err != nil {
			return fmt.Errorf("backup shadow file: %w", err)
		}
	}

	log.Infof(ctx)("Checking if resource '%s' exists in PAM360...", hostname)
	resources, res := p.PAM.ListResources(ctx)
	if !res.OK() {
		log.Warnf(ctx)("List resources result: %s", res)
	}

	var resourceID pam360.ID
	if resource, found := pam360.FindResource(resources, hostname); found && resource.ID != "" {
		resourceID = resource.ID
		log.Infof(ctx)("Resource found (ID: %s). Processing accounts...", resourceID)
		p.syncAccounts(ctx, resourceID, users, passwords)
	} else {
		resourceID, err = p.createResource(ctx, hostname, ip, users, passwords)
		if err != nil {
			return err
		}
	}

	p.shareResource(ctx, resourceID)
	p.changeLocalPasswords(ctx, users, passwords)

	log.Infof(ctx)("Password sync complete.")
	return nil
}

func (p *PasswordSync) localChangesAllowed() bool {
	return !system.IsDesktopPlatform(p.Platform)
}

func (p *PasswordSync) syncAccounts(ctx context.Context, resourceID pam360.ID, users []string, passwords map[string]string) {
	accounts, res := p.PAM.ListAccounts(ctx, resourceID)
	if !res.OK() {
		log.Warnf(ctx)("List accounts result: %s", res)
	}

	for _, user := range users {
		account, found := pam360.FindAccount(accounts, user)
		if !found || account.ID == "" {
			log.Infof(ctx)("Account '%s' not found. Creating...", user)
			p.createAccount(ctx, resourceID, user, passwords[user])
			continue
		}

		log.Infof(ctx)("Updating password for account '%s' (ID: %s)...", user, account.ID)
		res := p.PAM.ResetAccountPassword(ctx, resourceID, account.ID, pam360.PasswordReset{
			NewPassword: passwords[user],
			ResetType:   p.Config.ResetType,
			Reason:      p.Config.ResetReason,
		})
		if res.OK() {
			log.Infof(ctx)("Password updated for '%s'", user)
		} else {
			log.Warnf(ctx)("Update result for '%s': %s", user, res)
		}
	}
}

func (p *PasswordSync) createAccount(ctx context.Context, resourceID pam360.ID, user, pass string) {
	res := p.PAM.CreateAccounts(ctx, resourceID, []pam360.NewAccount{{
		Name:           user,
		Password:       pass,
		PasswordPolicy: p.Config.PasswordPolicy,
	}})
	if res.OK() {
		log.Infof(ctx)("Account '%s' created", user)
	} else {
		log.Warnf(ctx)("Create result for '%s': %s", user, res)
	}
}

// createResource registers the host with the first user as its initial
// account and adds the rest of the users afterwards.
func (p *PasswordSync) createResource(ctx context.Context, hostname, ip string, users []string, passwords map[string]string) (pam360.ID, error) {
	log.Infof(ctx)("Resource '%s' not found. Creating...", hostname)

	first := users[0]
	res := p.PAM.CreateResource(ctx, pam360.NewResource{
		Name:                   hostname,
		AccountName:            first,
		Type:                   p.Config.ResourceType,
		Password:               passwords[first],
		DNSName:                ip,
		ResourcePasswordPolicy: p.Config.PasswordPolicy,
		AccountPasswordPolicy:  p.Config.PasswordPolicy,
		GroupName:              p.Config.ResourceGroupName,
	})
	log.Infof(ctx)("Resource creation: %s", res.Message)

	resourceID, res := p.PAM.ResourceIDByName(ctx, hostname)
	if resourceID == "" {
		log.Errorf(ctx)("Failed to get resource ID: %s", res)
		return "", ErrResourceIDNotResolved
	}
	log.Infof(ctx)("New Resource ID: %s", resourceID)

	for _, user := range users[1:] {
		log.Infof(ctx)("Adding account '%s'...", user)
		p.createAccount(ctx, resourceID, user, passwords[user])
	}

	return resourceID, nil
}

func (p *PasswordSync) shareResource(ctx context.Context, resourceID pam360.ID) {
	log.Infof(ctx)("Sharing resource %s with user ID %s...", resourceID, p.Config.ShareUserID)

	res := p.PAM.ShareResource(ctx, resourceID, pam360.Share{
		AccessType: p.Config.ShareAccessType,
		UserID:     p.Config.ShareUserID,
	})
	if res.OK() {
		log.Infof(ctx)("Share result: %s", res.Message)
	} else {
		log.Warnf(ctx)("Share result: %s", res)
	}
}

func (p *PasswordSync) changeLocalPasswords(ctx context.Context, users []string, passwords map[string]string) {
	if !p.localChangesAllowed() {
		log.Warnf(ctx)("Running on %s - skipping local password changes (PAM360 sync only)", p.Platform)
		return
	}

	log.Infof(ctx)("Updating local passwords...")

	var allErrs *multierror.Error
	for _, user := range users {
		err := p.System.ChangePassword(user, passwords[user])
		if err != nil {
			log.Warnf(ctx)("Could not change local password for '%s': %v", user, err)
			allErrs = multierror.Append(allErrs, fmt.Errorf("%s: %w", user, err))
			continue
		}
		log.Infof(ctx)("Changed local password for '%s'", user)
	}

	if allErrs != nil {
		log.Warnf(ctx)("%d of %d local password changes failed", len(allErrs.Errors), len(users))
	}
}
