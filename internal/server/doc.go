// Package server exposes a merged library over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] uses
// [http.ServeMux] method patterns ("GET /tracks"), so a request with the wrong method gets a
// 405 from the mux itself.
//
// [Middleware] added first runs first. [RequestLogger] logs one line per request.
//
// # Library Handler
//
// [LibraryHandler] serves windowed reads of the merged collections:
//
//	GET /tracks?limit=&offset=    → merged tracks page
//	GET /albums?limit=&offset=    → merged albums page
//	GET /artists?limit=&offset=   → merged artists page
//	GET /playlists?limit=&offset= → merged playlists page
//	GET /sources                  → registered sources and counts per kind
//
// Every page carries the merged item ID, its contributing sources (preferred first) and the
// preferred facet's value. The handler is read-only; mutations go through the CLI.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
