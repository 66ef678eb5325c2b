// The [shelfclient] package is the client core for shelves: owned, ordered
// collections of items kept on a remote ledger service.
//
// # Connection Engines
//
// There are 2 connection engines, WebSocket and HTTP. Pass the service
// endpoint URL to [Connect] and it picks the engine from the scheme.
// Use [New] to run the core on top of any [remote.Service] instead.
//
// # Caching and the Entity Store
//
// Collections fetched from the remote are kept in a [cache.Cache] keyed by
// owning identity and normalized into a [store.Store]. Views read immutable
// [store.Snapshot] values and subscribe to [Client.Changes].
//
// The cache is shared. Unless [WithCache] says otherwise every client built in
// a process uses [DefaultCache].
//
// # Reordering
//
// [Client.Reorder] applies the new order locally before the remote confirms
// it, then reloads the collection. A rejected reorder is rolled back.
package shelfclient
