// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel shared by every table keyed by uuid
//   - billing.go: clients, orders, invoices
//   - audit.go: the append-only audit trail
//   - setting.go: durable scalar settings such as the temporal offset
//   - user.go: operator accounts
//
// Timestamps are always written in UTC so that text-encoded drivers compare them correctly.
package models
