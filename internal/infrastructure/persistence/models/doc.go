// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain types to keep the domain layer free of ORM
// concerns; mapper methods convert between the two.
package models
