// Command seed provisions the default staff accounts. Existing accounts
// are left untouched, so the command is safe to run repeatedly.
package main

import (
	"context"
	"errors"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/asoasiko/server/internal/module/user"
	"github.com/asoasiko/server/internal/shared/config"
	"github.com/asoasiko/server/internal/shared/database"
)

type seedAccount struct {
	username string
	email    string
	password string
	role     user.Role
}

var seedAccounts = []seedAccount{
	{username: "AdminUser", email: "admin@shop.com", password: "admin123", role: user.RoleAdmin},
	{username: "SalesgirlOne", email: "salesgirl@shop.com", password: "sales123", role: user.RoleSales},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := db.AutoMigrate(&user.User{}); err != nil {
		log.Fatalf("Failed to migrate users table: %v", err)
	}

	repo := user.NewRepository(db)
	ctx := context.Background()

	for _, acct := range seedAccounts {
		if _, err := repo.GetByEmail(ctx, acct.email); err == nil {
			log.Printf("%s already exists, skipping", acct.email)
			continue
		} else if !errors.Is(err, user.ErrUserNotFound) {
			log.Fatalf("Failed to look up %s: %v", acct.email, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(acct.password), 10)
		if err != nil {
			log.Fatalf("Failed to hash password for %s: %v", acct.email, err)
		}

		err = repo.Create(ctx, &user.User{
			Username:     acct.username,
			Email:        acct.email,
			PasswordHash: string(hash),
			Role:         acct.role,
		})
		if err != nil {
			log.Fatalf("Failed to create %s: %v", acct.email, err)
		}
		log.Printf("Created %s (%s)", acct.email, acct.role)
	}
}
