// Package db persists the two engine stores (the company registry and the
// warehouse ledger) as name-keyed JSON documents in two tables. Each write
// replaces the affected document synchronously, mirroring the
// snapshot-per-mutation persistence model of the engine.
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gartstein/companyledger/internal/ledger/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type companyRecord struct {
	Name      string `gorm:"primaryKey;size:64"`
	Doc       string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (companyRecord) TableName() string { return "companies" }

type warehouseRecord struct {
	Name      string `gorm:"primaryKey;size:64"`
	Doc       string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (warehouseRecord) TableName() string { return "warehouses" }

type Repository struct {
	db *gorm.DB
}

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func NewRepository(cfg *Config) (*Repository, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&companyRecord{}, &warehouseRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) LoadCompanies(ctx context.Context) (map[string]*models.Company, error) {
	var records []companyRecord
	if err := r.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load companies: %w", err)
	}
	companies := make(map[string]*models.Company, len(records))
	for _, record := range records {
		var company models.Company
		if err := json.Unmarshal([]byte(record.Doc), &company); err != nil {
			return nil, fmt.Errorf("failed to decode company %q: %w", record.Name, err)
		}
		companies[record.Name] = &company
	}
	return companies, nil
}

func (r *Repository) SaveCompany(ctx context.Context, company *models.Company) error {
	doc, err := json.Marshal(company)
	if err != nil {
		return fmt.Errorf("failed to encode company %q: %w", company.Name, err)
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
	}).Create(&companyRecord{Name: company.Name, Doc: string(doc)})
	if result.Error != nil {
		return fmt.Errorf("failed to save company %q: %w", company.Name, result.Error)
	}
	return nil
}

func (r *Repository) DeleteCompany(ctx context.Context, name string) error {
	result := r.db.WithContext(ctx).Delete(&companyRecord{}, "name = ?", name)
	if result.Error != nil {
		return fmt.Errorf("failed to delete company %q: %w", name, result.Error)
	}
	return nil
}

func (r *Repository) LoadWarehouses(ctx context.Context) (map[string]*models.Warehouse, error) {
	var records []warehouseRecord
	if err := r.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load warehouses: %w", err)
	}
	warehouses := make(map[string]*models.Warehouse, len(records))
	for _, record := range records {
		var warehouse models.Warehouse
		if err := json.Unmarshal([]byte(record.Doc), &warehouse); err != nil {
			return nil, fmt.Errorf("failed to decode warehouse %q: %w", record.Name, err)
		}
		if warehouse.Transactions == nil {
			warehouse.Transactions = []models.Transaction{}
		}
		warehouses[record.Name] = &warehouse
	}
	return warehouses, nil
}

func (r *Repository) SaveWarehouse(ctx context.Context, name string, warehouse *models.Warehouse) error {
	doc, err := json.Marshal(warehouse)
	if err != nil {
		return fmt.Errorf("failed to encode warehouse %q: %w", name, err)
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
	}).Create(&warehouseRecord{Name: name, Doc: string(doc)})
	if result.Error != nil {
		return fmt.Errorf("failed to save warehouse %q: %w", name, result.Error)
	}
	return nil
}

func (r *Repository) DeleteWarehouse(ctx context.Context, name string) error {
	result := r.db.WithContext(ctx).Delete(&warehouseRecord{}, "name = ?", name)
	if result.Error != nil {
		return fmt.Errorf("failed to delete warehouse %q: %w", name, result.Error)
	}
	return nil
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
