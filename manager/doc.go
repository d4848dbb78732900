// Package manager runs operations against a PDF document whose bytes may
// not all be resident yet.
//
// A [Manager] owns one [document.Document] for the lifetime of a document
// session. Callers express what they want as an [Operation] and hand it to
// [Manager.Run], or to one of the typed helpers [Ensure], [EnsureDocument],
// [EnsureXRef] and [EnsureCatalog]:
//
//	n, err := manager.EnsureCatalog(ctx, m, func(c *document.Catalog) (int, error) {
//		return c.NumPages()
//	})
//
// Two variants implement the interface. A [LocalManager] holds the whole
// file in memory and runs each operation exactly once. A [NetworkManager]
// reads through a [chunked.Stream]; when an operation fails with a
// [*chunked.MissingDataError] it fetches exactly that range and runs the
// operation again from the start, until it succeeds or fails for another
// reason.
//
// Operations must therefore be safe to repeat. Everything in package
// document is.
package manager
