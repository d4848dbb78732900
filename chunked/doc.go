// Package chunked tracks which parts of a document are resident and fetches
// the parts that are not.
//
// A [Stream] holds the document bytes together with a bitmap of loaded
// chunks. Reading non-resident bytes through [Stream.ReadAt] does not block;
// it returns a [*MissingDataError] naming the exact byte range that was
// requested, so callers can fetch it and try again.
//
// A [Manager] makes ranges resident on demand through a [RangeFetcher]:
//
//	stream := chunked.NewStream(length, 65536)
//	mgr := chunked.NewManager(stream, fetcher, chunked.ManagerOptions{})
//	if err := mgr.RequestRange(ctx, 0, 1024); err != nil {
//	    return err
//	}
//
// Missing chunks are grouped into contiguous runs, and a chunk that is
// already being fetched is never requested twice: concurrent callers waiting
// on the same chunk share one fetch. Bytes pushed by a streaming transport
// enter through [Manager.OnReceiveProgressiveData].
package chunked
