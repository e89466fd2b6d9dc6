package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/frahmantamala/grievance-management/internal/auth"
	departmentDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/department"
	userDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/grievance-management/internal/core/role"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed departments and one account per role for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		db, err := openGorm(sqlDB)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		password := os.Getenv("SEED_PASSWORD")
		if password == "" {
			password = "password"
		}
		hash, err := auth.HashPassword(password, cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		if err := seed(cmd.Context(), db, hash, clearData); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
		fmt.Println("Seeding finished")
	},
}

var seedDepartments = []string{"General", "IT Services", "Hostel", "Examination"}

type seedAccount struct {
	Email      string
	Role       role.Role
	Department string
}

var seedAccounts = []seedAccount{
	{Email: "superadmin@mail.com", Role: role.SuperAdmin},
	{Email: "admin.it@mail.com", Role: role.Admin, Department: "IT Services"},
	{Email: "employee.it@mail.com", Role: role.Employee, Department: "IT Services"},
	{Email: "employee.hostel@mail.com", Role: role.Employee, Department: "Hostel"},
	{Email: "student@mail.com", Role: role.User},
}

func seed(ctx context.Context, db *gorm.DB, passwordHash string, clear bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if clear {
			for _, table := range []string{"comments", "grievance_attachments", "grievance_status_history", "grievances", "users", "departments"} {
				if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
					return fmt.Errorf("failed to clear %s: %w", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		departmentIDs := make(map[string]int64, len(seedDepartments))
		for _, name := range seedDepartments {
			var dept departmentDatamodel.Department
			err := tx.Where("name = ?", name).First(&dept).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				dept = departmentDatamodel.Department{Name: name}
				if err := tx.Create(&dept).Error; err != nil {
					return fmt.Errorf("failed to insert department %s: %w", name, err)
				}
				fmt.Println("Seeded department:", name)
			} else if err != nil {
				return err
			}
			departmentIDs[name] = dept.ID
		}

		for _, acc := range seedAccounts {
			var existing userDatamodel.User
			err := tx.Where("email = ?", acc.Email).First(&existing).Error
			if err == nil {
				fmt.Println("user already exists:", acc.Email)
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			u := userDatamodel.User{
				Email:        acc.Email,
				PasswordHash: passwordHash,
				Role:         acc.Role,
				IsActive:     true,
			}
			if acc.Department != "" {
				id := departmentIDs[acc.Department]
				u.DepartmentID = &id
			}
			if err := tx.Create(&u).Error; err != nil {
				return fmt.Errorf("failed to insert user %s: %w", acc.Email, err)
			}
			fmt.Printf("Seeded %s user: %s\n", acc.Role, acc.Email)
		}
		return nil
	})
}
