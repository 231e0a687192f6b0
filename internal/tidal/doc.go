// Package tidal is a small client for the Tidal v2 (JSON:API) resource API.
//
// User-scoped calls ask a [TokenSource] for a bearer header before every request and refuse to
// call the API without one. Collections are read through a [Pager], which follows links.next one
// request at a time and can be resumed from an opaque cursor.
//
// [Catalog] covers lookups made as the application through the client-credentials grant.
package tidal
