// Command create_admin seeds a dashboard operator account.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/teacher-stats-api/internal/models"
	"github.com/noah-isme/teacher-stats-api/internal/repository"
	"github.com/noah-isme/teacher-stats-api/pkg/config"
	"github.com/noah-isme/teacher-stats-api/pkg/database"
)

type adminInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	FullName string `validate:"required"`
	Role     string `validate:"required,oneof=ADMIN SUPERADMIN"`
}

func main() {
	var input adminInput
	flag.StringVar(&input.Email, "email", "", "Admin email")
	flag.StringVar(&input.Password, "password", os.Getenv("ADMIN_PASSWORD"), "Admin password (defaults to $ADMIN_PASSWORD)")
	flag.StringVar(&input.FullName, "name", "", "Full name")
	flag.StringVar(&input.Role, "role", string(models.RoleAdmin), "ADMIN or SUPERADMIN")
	flag.Parse()

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Role = strings.ToUpper(input.Role)
	if err := validator.New().Struct(input); err != nil {
		log.Fatalf("invalid input: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	user := &models.AdminUser{
		Email:        input.Email,
		PasswordHash: string(hash),
		FullName:     input.FullName,
		Role:         models.UserRole(input.Role),
		Active:       true,
	}
	if err := repository.NewAdminUserRepository(db).Create(ctx, user); err != nil {
		log.Fatalf("failed to create admin: %v", err)
	}
	log.Printf("admin %s created with id %s", user.Email, user.ID)
}
