// Package data embeds the SQL used to initialize a MariaDB container for the
// versioning schema. The testcontainers harness replays these statements in
// file order.
package data

import (
	_ "embed"
)

//go:embed initdb/mariadb/002-ddl-tables.sql
var InitdbMariaDBTables string

//go:embed initdb/mariadb/003-ddl-privileges.sql
var InitdbMariaDBPrivileges string
