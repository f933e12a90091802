package setup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/VangaRenuka/SocialConnect/internal/config"
	"github.com/VangaRenuka/SocialConnect/internal/models"
)

type fakeAdminStore struct {
	hasAdmin bool
	created  []models.User
}

func (f *fakeAdminStore) HasAdmin() (bool, error)        { return f.hasAdmin, nil }
func (f *fakeAdminStore) CreateUser(u models.User) error { f.created = append(f.created, u); return nil }
func (f *fakeAdminStore) Close()                         {}

type probeLog struct {
	cassandra bool
	redis     bool
	migrated  bool
}

func testRunner(t *testing.T, cfg *config.Config, stdin string, st *fakeAdminStore, cassandraErr, redisErr, migrateErr error) (*Runner, *bytes.Buffer, *probeLog) {
	t.Helper()
	out := &bytes.Buffer{}
	log := &probeLog{}
	r := &Runner{
		Cfg:       cfg,
		Stdin:     strings.NewReader(stdin),
		Stdout:    out,
		NoSpinner: true,
		ProbeCassandra: func(*config.Config) error {
			log.cassandra = true
			return cassandraErr
		},
		ProbeRedis: func(context.Context, *config.Config) error {
			log.redis = true
			return redisErr
		},
		Migrate: func(*config.Config) error {
			log.migrated = true
			return migrateErr
		},
		ConnectStore: func(*config.Config) (AdminStore, error) {
			return st, nil
		},
	}
	return r, out, log
}

func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		DataDir:        filepath.Join(dir, "data"),
		EnvFile:        filepath.Join(dir, ".env"),
		EnvExampleFile: filepath.Join(dir, "env.example"),
	}
}

// A pre-flight failure must abort before any other step runs.
func TestRun_PreflightFailureStopsEverything(t *testing.T) {
	cfg := baseConfig(t)

	// Make DataDir collide with a regular file so MkdirAll fails.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.DataDir = filepath.Join(blocker, "data")

	st := &fakeAdminStore{}
	r, _, log := testRunner(t, cfg, "", st, nil, nil, nil)

	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected an error from the pre-flight check")
	}
	if log.cassandra || log.redis || log.migrated {
		t.Fatalf("no other step may run after a pre-flight failure: %+v", log)
	}
	if len(st.created) != 0 {
		t.Fatal("no user may be created after a pre-flight failure")
	}
}

func TestRun_ExistingDataDirIsKept(t *testing.T) {
	cfg := baseConfig(t)
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(cfg.DataDir, "keep.me")
	if err := os.WriteFile(marker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, _, _ := testRunner(t, cfg, "\n", &fakeAdminStore{hasAdmin: true}, nil, nil, nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := os.Stat(marker); err != nil {
		t.Fatal("existing data directory contents must survive setup")
	}
}

func TestRun_EnvFileCopiedFromTemplate(t *testing.T) {
	cfg := baseConfig(t)
	template := "SERVER_ADDR=:8443\nJWT_SECRET=change-me\n"
	if err := os.WriteFile(cfg.EnvExampleFile, []byte(template), 0o644); err != nil {
		t.Fatal(err)
	}

	r, out, _ := testRunner(t, cfg, "\n", &fakeAdminStore{hasAdmin: true}, nil, nil, nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(cfg.EnvFile)
	if err != nil {
		t.Fatalf(".env was not created: %v", err)
	}
	if string(data) != template {
		t.Fatalf(".env content differs from template: %q", data)
	}
	if !strings.Contains(out.String(), "press Enter to continue") {
		t.Fatal("setup must wait for confirmation after copying the template")
	}
}

func TestRun_ExistingEnvFileIsSkipped(t *testing.T) {
	cfg := baseConfig(t)
	original := "SERVER_ADDR=:9999\n"
	if err := os.WriteFile(cfg.EnvFile, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	r, out, _ := testRunner(t, cfg, "", &fakeAdminStore{hasAdmin: true}, nil, nil, nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, _ := os.ReadFile(cfg.EnvFile)
	if string(data) != original {
		t.Fatal("an existing .env must not be overwritten")
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Fatal("expected a skip notice for the existing .env")
	}
}

// Unreachable services warn and the sequence still completes.
func TestRun_ProbeFailuresAreNotFatal(t *testing.T) {
	cfg := baseConfig(t)
	st := &fakeAdminStore{}
	r, out, log := testRunner(t, cfg, "",
		st,
		errors.New("connection refused"),
		errors.New("connection refused"),
		errors.New("no route to host"))

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("probe failures must not abort setup: %v", err)
	}
	if !log.cassandra || !log.redis || !log.migrated {
		t.Fatalf("all steps should have been attempted: %+v", log)
	}

	text := out.String()
	if !strings.Contains(text, "Cassandra unreachable") || !strings.Contains(text, "Redis unreachable") {
		t.Fatalf("expected unreachable warnings, got: %s", text)
	}
	if !strings.Contains(text, "Setup complete") {
		t.Fatal("setup must reach the final banner")
	}
	if len(st.created) != 0 {
		t.Fatal("superuser creation must be skipped when Cassandra is down")
	}
}

func TestRun_SuperuserCreated(t *testing.T) {
	cfg := baseConfig(t)
	st := &fakeAdminStore{hasAdmin: false}
	stdin := "root\nroot@example.com\nsuper-secret\n"

	r, _, _ := testRunner(t, cfg, stdin, st, nil, nil, nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(st.created) != 1 {
		t.Fatalf("expected exactly one admin to be created, got %d", len(st.created))
	}
	admin := st.created[0]
	if admin.Username != "root" || admin.Email != "root@example.com" || admin.Role != models.RoleAdmin {
		t.Fatalf("unexpected admin account: %+v", admin)
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("super-secret")) != nil {
		t.Fatal("stored password hash does not match the entered password")
	}
}

func TestRun_SuperuserSkippedWhenPresent(t *testing.T) {
	cfg := baseConfig(t)
	st := &fakeAdminStore{hasAdmin: true}

	r, out, _ := testRunner(t, cfg, "", st, nil, nil, nil)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(st.created) != 0 {
		t.Fatal("no admin may be created when one already exists")
	}
	if !strings.Contains(out.String(), "already exists, skipping") {
		t.Fatal("expected a skip notice for the existing admin")
	}
}
