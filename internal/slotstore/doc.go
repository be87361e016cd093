// Package slotstore persists whole-value named slots in SQLite. A slot holds
// an ordered list of encoded strings and is always read and replaced as a
// unit; there are no partial updates.
package slotstore
