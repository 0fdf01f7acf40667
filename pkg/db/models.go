package db

import "time"

// Entry is one saved page or link.
type Entry struct {
	// URL identifies the entry; a store holds at most one entry per URL.
	URL         string
	Title       string
	HasBeenRead bool
	// CreationTime is assigned by the store on every add, in milliseconds since
	// the Unix epoch. Re-adding an entry (e.g. to change HasBeenRead) assigns a
	// new, later value.
	CreationTime int64
}

// Created returns CreationTime as a time.Time.
func (e Entry) Created() time.Time {
	return time.UnixMilli(e.CreationTime)
}
