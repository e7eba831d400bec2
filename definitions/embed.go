// Package definitions bundles the default questionnaires and the schema
// every definition is checked against.
package definitions

import (
	"embed"
	"io/fs"
)

//go:embed questionnaires
var bundled embed.FS

//go:embed questionnaire.schema.json
var Schema []byte

// Questionnaires returns the bundled definitions rooted at their directory.
func Questionnaires() fs.FS {
	sub, err := fs.Sub(bundled, "questionnaires")
	if err != nil {
		panic(err) // embedded path is fixed at build time
	}
	return sub
}
