// Package store holds the ticket table implementations behind parking.Store.
//
//   - Memory: in-process map, for tests and single-node runs
//   - Redis: hash per ticket, INCR counter and Lua scripts for conditional writes
//   - Postgres: one table, a sequence and a partial unique index on open plates
package store

import "fmt"

// IDWidth is the minimum width of a ticket ID. Counters past 9999 simply
// produce longer IDs.
const IDWidth = 4

func formatID(n int64) string {
	return fmt.Sprintf("%0*d", IDWidth, n)
}
