package db

import _ "embed"

// Schema creates the zone rule tables. Every statement is idempotent.
//
//go:embed schema.sql
var Schema string
