package auth

import (
	"embed"
)

//go:embed views/emails
var viewsFS embed.FS

// GetViewsFS returns the embedded email templates for this package
func GetViewsFS() embed.FS {
	return viewsFS
}
