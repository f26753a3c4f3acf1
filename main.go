package main

import (
	_ "embed"

	"github.com/dsh2dsh/fecfile/cmd"
	"github.com/dsh2dsh/fecfile/cmd/db"
)

const version = "0.1.0"

//go:embed db/schema.sql
var schemaSQL string

func init() {
	db.SchemaSQL = schemaSQL
}

func main() {
	cmd.Execute(version)
}
