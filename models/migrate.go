package models

import (
	"log"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
)

// MigrateTable auto-migrates the schema. Safe to run on every startup.
func MigrateTable() {
	db := config.GetDB()
	if db == nil {
		log.Println("skipping migration: database not initialized")
		return
	}
	err := db.AutoMigrate(
		&User{},
		&Customer{},
		&SalesOrder{},
		&OrderLineItem{},
		&OrderHistory{},
		&ImportProgress{},
		&ImportChunk{},
		&ImportLog{},
		&SyncRun{},
		&SyncErrorRecord{},
		&SalesRep{},
		&Spiff{},
		&CommissionEntry{},
		&CommissionSummary{},
		&CommissionJob{},
	)
	if err != nil {
		log.Printf("auto migration failed: %v", err)
	}
}
