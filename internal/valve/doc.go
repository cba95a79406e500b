// Package valve holds the valve registry: the ordered list of valves known
// to the bridge and its persistence.
//
// Valve ids are assigned by the registry as count+1 at creation time, so
// they are unique, start at 1 and never have gaps. Valves are never deleted.
//
// Every mutation rewrites the whole store synchronously through a [Store].
// Two backends are provided:
//
//   - [FileStore] keeps a JSON array in a single file (the legacy db/valves.json layout)
//   - [SQLiteStore] keeps one row per valve in SQLite
//
// Persistence failures are logged and never undo the in-memory change; the
// registry stays authoritative for the life of the process.
package valve
