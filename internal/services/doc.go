// Package services defines the [Catalog] interface for streaming catalogs and implements it for Deezer and Spotify.
//
// # Catalog Interface
//
// The pipeline in package tasks reads catalogs only through [Catalog], so album search, artist discographies and
// playlist contents work uniformly across providers. Paginated reads use an opaque cursor: Deezer cursors are the
// absolute "next" URL Deezer returns, Spotify cursors are item offsets.
//
// # Transport
//
// Both catalogs share an [http.Client] built by [NewHTTPClient]. Its [Transport] applies a per-attempt timeout,
// a requests-per-second limit, the configured User-Agent and bounded retries. Transient failures (network errors
// and the statuses in [http] retry_statuses, by default 429, 500, 502, 503 and 504) are retried up to max_retries
// times, waiting backoff * 2^attempt between attempts, or longer when the server sends Retry-After.
//
// # Deezer Implementation
//
// [DeezerCatalog] calls the unauthenticated public API through [APIService]. Deezer reports errors in-band with
// a 200 status, so list envelopes are checked for an "error" object before "data" is read.
//
// # Spotify Implementation
//
// [SpotifyCatalog] wraps [spotify.Client]. It exchanges client credentials for a bearer token on first use
// (see [SpotifyCatalog.Authenticate]); tokens are never persisted.
//
// # Error Handling
//
// Failures are classified with the shared error taxonomy:
//   - [shared.ErrNetwork] : transport failure after retries
//   - [shared.ProviderError] : non-2xx or in-band error, carrying the status
//   - [shared.ErrParse] : undecodable body or missing required fields
//   - [shared.ErrAuthFailed] : Spotify token exchange rejected
//
// Context cancellation is returned unwrapped so callers can tell an interrupt from a failure.
//
// # Links
//
// [ParseCatalogURL] recognizes Deezer and Spotify web links and Spotify URIs.
package services
