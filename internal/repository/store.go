// Package repository is the persistence layer: sessions, raw event/answer
// rows in, result rows out, plus the cross-session counting and population
// queries the detectors need.
package repository

import (
	"gorm.io/gorm"
)

// Store wraps the gorm handle. It satisfies fraud.Store and reports.Store;
// service-level tests substitute stubs for those interfaces instead.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}
