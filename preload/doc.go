// Package preload warms remote image resources ahead of display.
//
// A Scheduler owns a fixed pool of workers draining a FIFO queue of
// resource IDs (image URLs), so the number of background fetches in
// flight never exceeds Options.Concurrency however fast items are
// enqueued. Every ID is in at most one of three places at a time: the
// pending queue, the in-flight set or the completed set. Enqueueing an
// ID that is already in one of them is a no-op, and two loads of the
// same ID never overlap.
//
// Only completion is remembered, never the bytes. The completed set is
// an LRU bounded by Options.MaxCompleted.
//
//	s := preload.New(&preload.HTTPLoader{}, preload.Options{})
//	defer s.Close()
//	s.QueueImagePreload("https://img.example/p/42.jpg") // background
//	_ = s.PreloadImages(ctx, first6, preload.High)      // wait for these
package preload
