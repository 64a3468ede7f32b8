//go:build !wasm
// +build !wasm

// Package gorm provides GORM-based implementations of anyauth store
// interfaces. It supports any database that GORM supports (PostgreSQL,
// MySQL, SQLite, etc.) and is suitable for production deployments
// requiring relational database storage.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: Canonical user accounts
//   - strategy_links: Strategy-to-user bindings with a composite unique
//     index on (strategy_name, strategy_id)
//   - sessions: Server-side login sessions
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
//	gormstore.AutoMigrate(db)
//	userStore := gormstore.NewUserStore(db)
//	linkStore := gormstore.NewLinkStore(db)
//	sessionStore := gormstore.NewSessionStore(db)
package gorm
