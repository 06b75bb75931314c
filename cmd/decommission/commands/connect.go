// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/bureau-foundation/decommission/cmd/decommission/cli"
	"github.com/bureau-foundation/decommission/lib/config"
	"github.com/bureau-foundation/decommission/lib/secret"
	"github.com/bureau-foundation/decommission/lib/verkada"
)

// configParams are the flags every command that reads configuration
// accepts.
type configParams struct {
	ConfigPath string `flag:"config,c" desc:"configuration file, YAML or JSONC (default $DECOMMISSION_CONFIG)"`
}

func (p *configParams) load() (*config.Config, error) {
	cfg, err := config.Load(p.ConfigPath)
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	return cfg, nil
}

// sessionParams select and authenticate against an organization.
type sessionParams struct {
	configParams
	Email        string `flag:"email" desc:"organization admin e-mail (overrides config)"`
	Org          string `flag:"org" desc:"organization short name (overrides config)"`
	Shard        string `flag:"shard" desc:"backend shard (overrides config)"`
	PasswordFile string `flag:"password-file" desc:"file holding the console password; prompts when unset"`
	NoEscalate   bool   `flag:"no-escalate" desc:"do not grant the admin access-control and global-site roles"`
}

// resolve loads configuration and applies flag overrides.
func (p *sessionParams) resolve() (*config.Config, error) {
	cfg, err := p.load()
	if err != nil {
		return nil, err
	}
	if p.Email != "" {
		cfg.Account.Email = p.Email
	}
	if p.Org != "" {
		cfg.Account.OrgShortName = p.Org
	}
	if p.Shard != "" {
		cfg.Account.Shard = p.Shard
	}
	if p.PasswordFile != "" {
		cfg.Account.PasswordFile = p.PasswordFile
	}
	if p.NoEscalate {
		cfg.Scan.Escalate = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, cli.Validation("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// console is a logged-in console session.
type console struct {
	client   *verkada.InternalClient
	auth     *verkada.Authenticator
	session  *verkada.Session
	password *secret.Buffer
	logger   *slog.Logger
}

// connection adds the public API to a console session.
type connection struct {
	*console
	external *verkada.ExternalClient
	apiKey   *secret.Buffer
}

// internalClient builds the console client from cfg.
func internalClient(cfg *config.Config, logger *slog.Logger) (*verkada.InternalClient, error) {
	timeout, err := cfg.InternalTimeout()
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	var limiter *rate.Limiter
	if rps := cfg.Internal.RequestsPerSecond; rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return verkada.NewInternalClient(verkada.InternalConfig{
		HTTPClient: &http.Client{Timeout: timeout},
		Limiter:    limiter,
		Logger:     logger,
	}), nil
}

// retryPolicy applies cfg to the default policy.
func retryPolicy(cfg *config.Config) (*verkada.RetryPolicy, error) {
	backoff, err := cfg.InitialBackoff()
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	policy := verkada.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.External.MaxAttempts
	policy.InitialBackoff = backoff
	return &policy, nil
}

// login authenticates the console, prompting for the password when no
// password file is configured and for one-time codes when challenged.
func login(ctx context.Context, cfg *config.Config, terminal *cli.Terminal, logger *slog.Logger) (*console, error) {
	var (
		password *secret.Buffer
		err      error
	)
	if cfg.Account.PasswordFile != "" {
		password, err = secret.ReadFromPath(cfg.Account.PasswordFile)
	} else {
		password, err = terminal.Password(fmt.Sprintf("Password for %s: ", cfg.Account.Email))
	}
	if err != nil {
		return nil, cli.Validation("reading password: %w", err)
	}

	client, err := internalClient(cfg, logger)
	if err != nil {
		password.Close()
		return nil, err
	}
	policy, err := verkada.ParseInvalidCodePolicy(cfg.MFA.InvalidCode)
	if err != nil {
		password.Close()
		return nil, cli.Validation("%w", err)
	}
	auth := verkada.NewAuthenticator(client, verkada.AuthenticatorConfig{InvalidCode: policy, Logger: logger})
	credentials := verkada.Credentials{
		Email:        cfg.Account.Email,
		Password:     password,
		OrgShortName: cfg.Account.OrgShortName,
		Shard:        cfg.Account.Shard,
	}

	session, err := authenticate(ctx, auth, credentials, terminal, cfg.MFA.Attempts)
	if err != nil {
		password.Close()
		return nil, err
	}
	logger.Info("logged in",
		"organization", session.OrgShortName(),
		"organization_id", session.OrganizationID(),
	)
	return &console{client: client, auth: auth, session: session, password: password, logger: logger}, nil
}

// authenticate drives the login state machine. Under the retain policy
// a wrong code prompts again against the same challenge; under discard
// it logs in again, which sends a fresh code.
func authenticate(ctx context.Context, auth *verkada.Authenticator, credentials verkada.Credentials, terminal *cli.Terminal, attempts int) (*verkada.Session, error) {
	result, err := auth.Login(ctx, credentials)
	if err != nil {
		return nil, loginError(err)
	}
	if result.Outcome == verkada.LoginAuthenticated {
		return result.Session, nil
	}

	hint := result.Hint
	for attempt := 1; attempt <= attempts; attempt++ {
		prompt := "Verification code: "
		if hint != "" {
			prompt = fmt.Sprintf("Verification code (sent to %s): ", hint)
		}
		code, err := terminal.Line(prompt)
		if err != nil {
			auth.Cancel()
			return nil, cli.Validation("reading verification code: %w", err)
		}

		session, err := auth.CompleteChallenge(ctx, code)
		switch {
		case err == nil:
			return session, nil
		case errors.Is(err, verkada.ErrLoginRequired):
			fmt.Fprintln(terminal.Output(), "Incorrect code. A new code is being sent.")
			result, err = auth.Login(ctx, credentials)
			if err != nil {
				return nil, loginError(err)
			}
			if result.Outcome == verkada.LoginAuthenticated {
				return result.Session, nil
			}
			hint = result.Hint
		case errors.Is(err, verkada.ErrChallengeInvalid):
			fmt.Fprintln(terminal.Output(), "Incorrect code.")
		default:
			return nil, loginError(err)
		}
	}
	auth.Cancel()
	return nil, cli.Forbidden("verification failed after %d attempts", attempts)
}

func loginError(err error) error {
	if errors.Is(err, verkada.ErrAuthFailed) {
		return cli.Forbidden("console login: %w", err)
	}
	if verkada.IsTransient(err) {
		return cli.Transient("console login: %w", err)
	}
	return cli.Internal("console login: %w", err)
}

// close logs out and releases the password.
func (c *console) close(ctx context.Context) {
	if err := c.auth.Logout(ctx); err != nil {
		c.logger.Warn("logout failed", "error", err)
	}
	c.password.Close()
}

// connect logs in, escalates when configured, and opens the public
// API with a freshly minted key.
func connect(ctx context.Context, cfg *config.Config, terminal *cli.Terminal, logger *slog.Logger) (*connection, error) {
	session, err := login(ctx, cfg, terminal, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Scan.Escalate {
		if err := session.client.EscalatePrivileges(ctx); err != nil {
			logger.Warn("privilege escalation incomplete, some categories may be forbidden", "error", err)
		}
	}

	apiKey, err := session.client.CreateExternalAPIKey(ctx)
	if err != nil {
		session.close(ctx)
		if errors.Is(err, verkada.ErrAPIKeyLimit) {
			return nil, cli.Conflict("%w: delete an existing key in the console and rerun", err)
		}
		if verkada.IsForbidden(err) {
			return nil, cli.Forbidden("creating API key: %w", err)
		}
		return nil, cli.Internal("creating API key: %w", err)
	}

	external, err := openExternal(ctx, cfg, apiKey, logger)
	if err != nil {
		apiKey.Close()
		session.close(ctx)
		return nil, err
	}
	return &connection{console: session, external: external, apiKey: apiKey}, nil
}

// openExternal exchanges apiKey for a token on the configured region.
func openExternal(ctx context.Context, cfg *config.Config, apiKey *secret.Buffer, logger *slog.Logger) (*verkada.ExternalClient, error) {
	policy, err := retryPolicy(cfg)
	if err != nil {
		return nil, err
	}
	external, err := verkada.ConnectExternal(ctx, apiKey, verkada.ExternalConfig{
		BaseURL: verkada.RegionURL(cfg.External.Region),
		Retry:   policy,
		Logger:  logger,
	})
	if err != nil {
		if errors.Is(err, verkada.ErrTokenExchange) {
			return nil, cli.Forbidden("%w", err)
		}
		return nil, cli.Internal("opening public API: %w", err)
	}
	return external, nil
}

func (c *connection) close(ctx context.Context) {
	c.apiKey.Close()
	c.console.close(ctx)
}
