// Package types provides shared type definitions for the launchsearch engine.
//
// # Items
//
// Anything the launcher can start is an installed app (AppInfo, keyed by its
// package identifier) or an app shortcut (ShortcutRef, keyed by ShortcutKey):
//
//	key := types.ShortcutKey("com.android.chrome", "new_tab")
//	// "shortcut:com.android.chrome:new_tab"
//
// The shortcut key is used both as a map key and as the weight lookup key,
// so its format is part of the persisted contract.
//
// # Results
//
// Result is a closed sum type with three implementations:
//
//	switch r := result.(type) {
//	case types.AppResult:
//	    launch(r.App.Key)
//	case types.ShortcutResult:
//	    launchShortcut(r.Shortcut.OwnerKey, r.Shortcut.ID)
//	case types.ActionResult:
//	    execute(r.Type, r.Value)
//	}
//
// SearchResults groups results into buckets (apps, shortcuts, contacts,
// calendar, files, tools, websites, articles, places, actions). Each bucket
// is sorted by TotalScore descending.
package types
