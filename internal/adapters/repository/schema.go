package repository

import "embed"

//go:embed schema/*.sql
var schemaFS embed.FS

func schema(name string) string {
	b, err := schemaFS.ReadFile("schema/" + name + ".sql")
	if err != nil {
		panic("repository: missing embedded schema " + name)
	}
	return string(b)
}
