// Package inmemdb implements the domain repositories in memory, for tests and the memory engine.
package inmemdb

import (
	"context"
	"sync"

	"github.com/d2monteblanco/ki-aikido-system/core"
	"github.com/d2monteblanco/ki-aikido-system/core/dojo"
	"github.com/d2monteblanco/ki-aikido-system/core/event"
	"github.com/d2monteblanco/ki-aikido-system/core/user"
)

type (
	// DB holds every table. All access is serialized; a transaction holds the lock until it ends.
	DB struct {
		mu     sync.Mutex
		tables tables
		seq    map[string]int
	}

	tables struct {
		users       map[int]user.User
		dojos       map[int]dojo.Dojo
		events      map[int]event.Event
		reminders   map[int]event.Reminder
		occurrences map[int]event.Occurrence
	}

	// txExecutor marks repository calls made within DB.WithinTx.
	txExecutor struct {
		core.DBExecutor
		db *DB
	}
)

var _ core.Transactor = (*DB)(nil)

func Open() *DB {
	return &DB{tables: newTables(), seq: make(map[string]int)}
}

func newTables() tables {
	return tables{
		users:       make(map[int]user.User),
		dojos:       make(map[int]dojo.Dojo),
		events:      make(map[int]event.Event),
		reminders:   make(map[int]event.Reminder),
		occurrences: make(map[int]event.Occurrence),
	}
}

func (t tables) copy() tables {
	c := newTables()
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.dojos {
		c.dojos[k] = v
	}
	for k, v := range t.events {
		c.events[k] = v
	}
	for k, v := range t.reminders {
		c.reminders[k] = v
	}
	for k, v := range t.occurrences {
		c.occurrences[k] = v
	}
	return c
}

// WithinTx runs fn alone against the DB; every table is restored when fn fails.
func (db *DB) WithinTx(_ context.Context, fn func(exec core.DBExecutor) error) (err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.tables.copy()
	defer func() {
		if p := recover(); p != nil {
			db.tables = snapshot
			panic(p)
		}
	}()
	if err = fn(&txExecutor{db: db}); err != nil {
		db.tables = snapshot
	}
	return err
}

// run executes fn within the caller's transaction when exec holds one, under the DB lock otherwise.
func (db *DB) run(exec []core.DBExecutor, fn func()) {
	if len(exec) > 0 {
		if tx, ok := exec[0].(*txExecutor); ok && tx.db == db {
			fn()
			return
		}
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	fn()
}

// nextID returns the next primary key of table. Keys are never reused, even after a rollback.
func (db *DB) nextID(table string) int {
	db.seq[table]++
	return db.seq[table]
}

// Flush empties every table.
func (db *DB) Flush() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables = newTables()
}
