// Package tasks resolves catalog input into an ordered list of album URLs with real-time progress reporting.
//
// # Core Operations
//
// [Pipeline] exposes three flows, each returning a [Run]:
//
//  1. [Pipeline.ResolveAlbum] : single album lookup
//     - Searches the catalog with the raw query
//     - The first result is the answer
//
//  2. [Pipeline.Discography] : an artist's releases
//     - Pins the artist with a "band album" search ([ArtistResolver])
//     - Walks every page of the artist's catalog ([Walk])
//     - Filters by record type ([ReleaseFilter]), deduplicates by title ([Dedupe])
//     - Optionally drops albums already in the owned collection ([Classifier])
//
//  3. [Pipeline.Playlist] : the albums behind a playlist
//     - Walks every page of the playlist's tracks
//     - Reduces tracks to distinct albums, then filters, deduplicates and diffs like a discography
//
// # Run States
//
// A run moves strictly forward through [Phase] values and records every state in Run.History.
// Any failure moves it straight to Failed with the cause kept in Run.Reason. A pagination failure is
// the one exception: the walk keeps the pages it already has, the run is marked Partial and continues
// to Filtering.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
//
// # Pagination
//
// [Pages] is a lazy iterator over a cursor-paginated endpoint. It sleeps the paginator's delay
// between pages, never before the first, and stops only when a page has no next cursor or a fetch
// fails. There is no page ceiling.
package tasks
