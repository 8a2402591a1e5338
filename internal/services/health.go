package services

import (
	"fmt"
	"log"
	"os"

	"github.com/fieldvault/revisiondb/internal/config"
	"github.com/fieldvault/revisiondb/internal/utils"
	"gorm.io/gorm"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	FileStore    string            `json:"file_store"`
	Authorizer   string            `json:"authorizer"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

// HealthCheck performs a comprehensive health check of the service
func HealthCheck(cfg *config.Config, db *gorm.DB) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	// Check database connectivity
	sqlDB, err := db.DB()
	if err != nil {
		result.Status = "unhealthy"
		result.Database = "error"
		result.Details["database_error"] = err.Error()
		result.ErrorMessage = fmt.Sprintf("Database connection error: %v", err)
		log.Printf("Health check failed - database connection: %v", err)
	} else {
		if err := sqlDB.Ping(); err != nil {
			result.Status = "unhealthy"
			result.Database = "unreachable"
			result.Details["database_ping_error"] = err.Error()
			result.ErrorMessage = fmt.Sprintf("Database ping failed: %v", err)
			log.Printf("Health check failed - database ping: %v", err)
		} else {
			result.Database = "ok"
			result.Details["database_type"] = cfg.DBType
			result.Details["database_name"] = cfg.DBDatabase
		}
	}

	// Check file store directory
	if info, err := os.Stat(cfg.FilesPath); err != nil || !info.IsDir() {
		result.Status = "unhealthy"
		result.FileStore = "unavailable"
		if err != nil {
			result.Details["file_store_error"] = err.Error()
		} else {
			result.Details["file_store_error"] = "not a directory"
		}
		if result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("File store unavailable: %s", cfg.FilesPath)
		} else {
			result.ErrorMessage += fmt.Sprintf("; file store unavailable: %s", cfg.FilesPath)
		}
		log.Printf("Health check failed - file store: %s", cfg.FilesPath)
	} else {
		result.FileStore = "ok"
		result.Details["file_store_path"] = cfg.FilesPath
	}

	// Check Authorizer connectivity
	if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
		result.Status = "unhealthy"
		result.Authorizer = "unreachable"
		result.Details["authorizer_error"] = err.Error()
		if result.ErrorMessage == "" {
			result.ErrorMessage = fmt.Sprintf("Authorizer ping failed: %v", err)
		} else {
			result.ErrorMessage += fmt.Sprintf("; Authorizer ping failed: %v", err)
		}
		log.Printf("Health check failed - authorizer ping: %v", err)
	} else {
		result.Authorizer = "ok"
		result.Details["authorizer_url"] = cfg.AuthzURL
	}

	if result.Status == "healthy" {
		log.Println("Health check passed - all systems operational")
	}

	return result
}
