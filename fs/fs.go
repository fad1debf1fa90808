// Package appfs exposes build-time embedded assets: database migrations
// and email templates.
package appfs

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed all:assets/templates/email
var Templates embed.FS
