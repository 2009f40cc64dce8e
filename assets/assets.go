// Package assets embeds the files shipped with the binaries: email templates, SQL migrations and the common passwords list.
package assets

import "embed"

//go:embed templates migrations common-passwords.txt.gz
var FS embed.FS
