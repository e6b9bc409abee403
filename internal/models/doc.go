// Package models defines the catalog entities shared by the deemixkit resolution pipeline.
//
// The package contains two categories of types:
//
// 1. Transient catalog values, built per invocation and discarded after output
//   - [AlbumRef] : a release with its provider-derived album URL
//   - [ArtistRef] : a provider-scoped artist identity
//   - [PlaylistRef] : playlist metadata from a catalog provider
//   - [Track] : a playlist entry embedding its [AlbumRef]
//   - [Page] : one page of a cursor-paginated endpoint
//
// 2. Persistent entities backing the owned-collection index
//   - [OwnedAlbum] : an album found in the local music library
//
// Provider identifiers are never compared across providers: a Deezer artist ID and a
// Spotify artist ID for the same real-world artist are unrelated values.
package models
