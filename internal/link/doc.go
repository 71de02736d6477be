// Package link binds channels to items through profiles.
//
// A Link is the persisted association of one channel with one item,
// optionally carrying an explicitly configured profile type. The Manager
// turns links into bindings: it asks the profile Registry to resolve a
// profile for each link, caches the result for the link's lifetime, and
// routes channel and item events to the bound profile.
//
// # Dispatch Model
//
// Events for the same link are delivered one at a time (each binding has
// its own mutex). Events for different links may be delivered concurrently.
// Reconfiguring a link resolves a fresh profile and swaps the binding; the
// old profile never sees another event once the swap returns.
//
// A link whose profile cannot be resolved stays inert and is listed by
// Unresolved() so an operator can correct it.
//
// # Usage
//
//	repo := link.NewSQLiteRepository(db.DB)
//	manager := link.NewManager(repo, registry, callbacks)
//	manager.SetLogger(log)
//
//	if err := manager.ActivateAll(ctx); err != nil {
//	    return err
//	}
//
//	manager.HandleChannelTrigger("hue:dimmer:button1", profile.EventPressed)
package link
