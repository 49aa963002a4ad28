// Package storage provides persistence for launcher items, favorites, tags
// and search history.
//
// Two backends implement Storage:
//   - SQLiteStorage: the default, versioned schema applied on open
//   - BadgerStorage: embedded key-value store, also usable fully in memory
//
// # Database Schema
//
// Tables:
//   - searchables: one row per app or shortcut (launch_count, hidden, weight)
//   - favorites: pinned items and their position
//   - tags, tag_items: named favorite groups
//   - search_history: confirmed queries with timestamps
//
// The weight column is nullable. Missing or non-numeric weights are read
// back as nil and score as 0.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.launchsearch/launchsearch.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	item, err := db.GetItem(ctx, "com.android.chrome")
//	if errors.Is(err, storage.ErrNotFound) {
//	    // never launched
//	}
//
// # Build Tags
//
// CGO Build (sqlite_cgo tag) uses github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags "sqlite_cgo"
//
// The default build uses modernc.org/sqlite and needs no C compiler:
//
//	CGO_ENABLED=0 go build
package storage
