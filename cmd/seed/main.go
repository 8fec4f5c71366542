// seed inserts development users for local testing and can install an operator policy.
// Idempotent: users that already exist are skipped and policies are upserted by name.
//
//	go run ./cmd/seed                          # dev and operator users
//	go run ./cmd/seed -policy ops.rego         # also install ops.rego as policy "ops"
//	go run ./cmd/seed -print-hash 'secret'     # print a bcrypt hash and exit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"authgate/backend/internal/config"
	"authgate/backend/internal/identity/service"
	policydomain "authgate/backend/internal/policy/domain"
	"authgate/backend/internal/security"
	"authgate/backend/internal/store"
	userdomain "authgate/backend/internal/user/domain"
	userrepo "authgate/backend/internal/user/repository"
)

const (
	devPassword   = "Password123!"
	devUserEmail  = "dev@example.com"
	operatorEmail = "ops@example.com"
)

func main() {
	printHash := flag.String("print-hash", "", "Print the bcrypt hash of this password and exit")
	policyFile := flag.String("policy", "", "Rego file to install as an operator policy")
	policyName := flag.String("policy-name", "", "Name of the installed policy (default: file name without extension)")
	flag.Parse()

	cfg, err := config.LoadTool()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	hasher := security.NewHasher(cfg.BcryptCost)

	if *printHash != "" {
		hash, err := hasher.Hash(*printHash)
		if err != nil {
			log.Fatalf("hash: %v", err)
		}
		fmt.Println(hash)
		return
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}
	stores, err := store.Open(cfg, nil)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer stores.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := service.ValidatePassword(devPassword, cfg.PasswordMinLength); err != nil {
		log.Fatalf("dev password rejected by policy: %v", err)
	}
	passwordHash, err := hasher.Hash(devPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	for _, u := range []struct{ email, first, last string }{
		{devUserEmail, "Dev", "User"},
		{operatorEmail, "Ops", "User"},
	} {
		if err := seedUser(ctx, stores.Users, u.email, u.first, u.last, passwordHash); err != nil {
			log.Fatalf("seed %s: %v", u.email, err)
		}
	}
	log.Printf("Users ready (password %q). Add %s to OPERATOR_EMAILS to allow operator actions.", devPassword, operatorEmail)

	if *policyFile != "" {
		name := *policyName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(*policyFile), filepath.Ext(*policyFile))
		}
		rules, err := os.ReadFile(*policyFile)
		if err != nil {
			log.Fatalf("read policy: %v", err)
		}
		p := &policydomain.Policy{
			ID:        uuid.New().String(),
			Name:      name,
			Rules:     string(rules),
			Enabled:   true,
			CreatedAt: time.Now().UTC(),
		}
		if err := stores.Policies.Create(ctx, p); err != nil {
			log.Fatalf("install policy: %v", err)
		}
		log.Printf("Operator policy %q installed; it replaces the built-in policy.", name)
	}
}

func seedUser(ctx context.Context, users userrepo.Repository, email, first, last, passwordHash string) error {
	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Printf("%s exists. Skipping.", email)
		return nil
	}
	now := time.Now().UTC()
	err = users.Create(ctx, &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    first,
		LastName:     last,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, userrepo.ErrEmailTaken) {
		return nil
	}
	return err
}
