// Package setup implements the interactive first-run provisioning
// sequence: pre-flight checks, environment file, service probes,
// migrations and superuser creation.
package setup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/VangaRenuka/SocialConnect/internal/cache"
	"github.com/VangaRenuka/SocialConnect/internal/config"
	"github.com/VangaRenuka/SocialConnect/internal/models"
	"github.com/VangaRenuka/SocialConnect/internal/store"
)

// AdminStore is the storage surface superuser provisioning needs.
type AdminStore interface {
	HasAdmin() (bool, error)
	CreateUser(u models.User) error
	Close()
}

// Runner executes the setup sequence. Dependencies are injectable so
// the sequence can be exercised without live services.
type Runner struct {
	Cfg    *config.Config
	Stdin  io.Reader
	Stdout io.Writer

	ProbeCassandra func(cfg *config.Config) error
	ProbeRedis     func(ctx context.Context, cfg *config.Config) error
	Migrate        func(cfg *config.Config) error
	ConnectStore   func(cfg *config.Config) (AdminStore, error)

	// NoSpinner suppresses terminal animation (tests, non-TTY).
	NoSpinner bool

	in *bufio.Reader
}

// NewRunner wires a Runner against the real services.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{
		Cfg:    cfg,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		ProbeCassandra: store.Ping,
		ProbeRedis: func(ctx context.Context, cfg *config.Config) error {
			c := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			defer c.Close()
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			return c.Ping(pingCtx)
		},
		Migrate: func(cfg *config.Config) error {
			if err := store.EnsureKeyspace(cfg); err != nil {
				return err
			}
			return store.RunMigrations(cfg)
		},
		ConnectStore: func(cfg *config.Config) (AdminStore, error) {
			return store.New()
		},
	}
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	failColor   = color.New(color.FgRed, color.Bold)
)

// Run executes the six setup steps in order. Only a pre-flight failure
// returns an error; downstream failures warn and continue.
func (r *Runner) Run(ctx context.Context) error {
	r.in = bufio.NewReader(r.Stdin)

	headerColor.Fprintln(r.Stdout, "SocialConnect setup")
	fmt.Fprintln(r.Stdout)

	// Step 1: pre-flight. Fatal before anything else happens.
	headerColor.Fprintln(r.Stdout, "[1/6] Checking data directory")
	if err := r.ensureDataDir(); err != nil {
		failColor.Fprintf(r.Stdout, "  data directory check failed: %v\n", err)
		return err
	}
	okColor.Fprintf(r.Stdout, "  data directory ready: %s\n", r.Cfg.DataDir)

	// Step 2: environment file.
	headerColor.Fprintln(r.Stdout, "[2/6] Environment file")
	r.ensureEnvFile()

	// Step 3: service probes, best-effort.
	headerColor.Fprintln(r.Stdout, "[3/6] Probing services")
	cassandraUp := r.probe("Cassandra", func() error { return r.ProbeCassandra(r.Cfg) },
		"start it with: docker compose up -d cassandra")
	r.probe("Redis", func() error { return r.ProbeRedis(ctx, r.Cfg) },
		"start it with: docker compose up -d redis")

	// Step 4: migrations.
	headerColor.Fprintln(r.Stdout, "[4/6] Applying migrations")
	if err := r.Migrate(r.Cfg); err != nil {
		if !cassandraUp {
			warnColor.Fprintf(r.Stdout, "  skipped, Cassandra is unreachable: %v\n", err)
		} else {
			failColor.Fprintf(r.Stdout, "  migration error: %v\n", err)
		}
	} else {
		okColor.Fprintln(r.Stdout, "  schema is up to date")
	}

	// Step 5: superuser provisioning.
	headerColor.Fprintln(r.Stdout, "[5/6] Superuser")
	if cassandraUp {
		r.ensureSuperuser()
	} else {
		warnColor.Fprintln(r.Stdout, "  skipped, Cassandra is unreachable")
	}

	// Step 6: done.
	headerColor.Fprintln(r.Stdout, "[6/6] Setup complete")
	fmt.Fprintln(r.Stdout)
	okColor.Fprintln(r.Stdout, "Next steps:")
	fmt.Fprintln(r.Stdout, "  socialconnect serve    # start the API server")
	fmt.Fprintln(r.Stdout, "  socialconnect worker   # start the feed/notification worker")
	return nil
}

// ensureDataDir creates the data directory if needed and verifies it
// is writable.
func (r *Runner) ensureDataDir() error {
	abs, err := filepath.Abs(r.Cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", r.Cfg.DataDir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", abs, err)
	}

	testFile := filepath.Join(abs, ".write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return fmt.Errorf("directory %s is not writable: %w", abs, err)
	}
	os.Remove(testFile)
	return nil
}

func (r *Runner) ensureEnvFile() {
	if _, err := os.Stat(r.Cfg.EnvFile); err == nil {
		okColor.Fprintf(r.Stdout, "  %s already exists, skipping\n", r.Cfg.EnvFile)
		return
	}

	data, err := os.ReadFile(r.Cfg.EnvExampleFile)
	if err != nil {
		warnColor.Fprintf(r.Stdout, "  template %s not found, skipping\n", r.Cfg.EnvExampleFile)
		return
	}
	if err := os.WriteFile(r.Cfg.EnvFile, data, 0o644); err != nil {
		warnColor.Fprintf(r.Stdout, "  could not write %s: %v\n", r.Cfg.EnvFile, err)
		return
	}

	okColor.Fprintf(r.Stdout, "  created %s from %s\n", r.Cfg.EnvFile, r.Cfg.EnvExampleFile)
	fmt.Fprint(r.Stdout, "  review the file and press Enter to continue... ")
	r.readLine()
	fmt.Fprintln(r.Stdout)
}

// probe runs a best-effort connectivity check. Failures warn with a
// remediation hint and never stop the sequence.
func (r *Runner) probe(name string, fn func() error, hint string) bool {
	var sp *spinner.Spinner
	if !r.NoSpinner {
		sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(r.Stdout))
		sp.Suffix = " checking " + name
		sp.Start()
	}

	err := fn()

	if sp != nil {
		sp.Stop()
	}
	if err != nil {
		warnColor.Fprintf(r.Stdout, "  %s unreachable: %v\n", name, err)
		warnColor.Fprintf(r.Stdout, "    hint: %s\n", hint)
		return false
	}
	okColor.Fprintf(r.Stdout, "  %s reachable\n", name)
	return true
}

func (r *Runner) ensureSuperuser() {
	st, err := r.ConnectStore(r.Cfg)
	if err != nil {
		warnColor.Fprintf(r.Stdout, "  could not connect to the store: %v\n", err)
		return
	}
	defer st.Close()

	exists, err := st.HasAdmin()
	if err != nil {
		warnColor.Fprintf(r.Stdout, "  could not check for an existing admin: %v\n", err)
		return
	}
	if exists {
		okColor.Fprintln(r.Stdout, "  an admin account already exists, skipping")
		return
	}

	fmt.Fprintln(r.Stdout, "  no admin account found, creating one")
	username := r.prompt("  username: ")
	email := r.prompt("  email: ")
	password := r.prompt("  password: ")

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		failColor.Fprintf(r.Stdout, "  could not hash password: %v\n", err)
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		Visibility:   models.VisibilityPublic,
		JoinedAt:     time.Now(),
		IsActive:     true,
	}
	if err := st.CreateUser(user); err != nil {
		failColor.Fprintf(r.Stdout, "  could not create admin: %v\n", err)
		return
	}
	okColor.Fprintf(r.Stdout, "  admin %q created\n", username)
}

func (r *Runner) prompt(label string) string {
	fmt.Fprint(r.Stdout, label)
	return r.readLine()
}

func (r *Runner) readLine() string {
	line, _ := r.in.ReadString('\n')
	return strings.TrimSpace(line)
}
