// Package dbtest opens in-memory SQLite databases with the full schema for
// repository and service tests.
package dbtest

import (
	"fmt"

	commentDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/comment"
	departmentDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/department"
	grievanceDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/grievance"
	userDatamodel "github.com/frahmantamala/grievance-management/internal/core/datamodel/user"
	"github.com/frahmantamala/grievance-management/internal/core/role"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a fresh database. Each call gets its own memory store.
func Open() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// one connection, otherwise every pooled conn sees a different :memory: db
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&departmentDatamodel.Department{},
		&userDatamodel.User{},
		&grievanceDatamodel.Grievance{},
		&grievanceDatamodel.StatusHistory{},
		&grievanceDatamodel.Attachment{},
		&commentDatamodel.Comment{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return db, nil
}

func CreateDepartment(db *gorm.DB, name string) (*departmentDatamodel.Department, error) {
	d := &departmentDatamodel.Department{Name: name}
	return d, db.Create(d).Error
}

// CreateUser inserts an active user. departmentID may be nil.
func CreateUser(db *gorm.DB, email string, r role.Role, departmentID *int64) (*userDatamodel.User, error) {
	u := &userDatamodel.User{
		Email:        email,
		PasswordHash: "x",
		Role:         r,
		DepartmentID: departmentID,
		IsActive:     true,
	}
	return u, db.Create(u).Error
}
