// Package sqlite stores triggers, executions and element audits in a single
// modernc.org/sqlite file. It is the default driver for local and single-node
// deployments and shares its row models with the postgres driver.
package sqlite
