//go:build !wasm
// +build !wasm

// Package gae provides Google Cloud Datastore implementations of anyauth
// store interfaces, suitable for App Engine and Cloud Run deployments.
//
// Strategy links use a key name derived from (strategy name, strategy id)
// and a transactional insert, so Datastore key uniqueness enforces the
// identity-ownership constraint.
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	userStore := gae.NewUserStore(client, "")
//	linkStore := gae.NewLinkStore(client, "")
//	sessionStore := gae.NewSessionStore(client, "")
package gae
