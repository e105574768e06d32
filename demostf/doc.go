// Package demostf provides a client for the demos.tf API.
//
// demos.tf is a hosting service for TF2 demo recordings. The client covers
// listing and searching demos, fetching single demos, users and chat logs,
// uploading new demos and downloading demo files with hash verification.
//
// Create a client and list demos:
//
//	client, err := demostf.New(demostf.DefaultBaseURL)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	demos, err := client.List(ctx, demostf.ListParams{}.
//		WithOrder(demostf.OrderAscending).
//		WithMap("cp_gullywash_final1"), 1)
//
// All operations take a context.Context; cancelling it cancels the in-flight
// request. The client holds no mutable state besides its configuration and is
// safe for concurrent use.
//
// # Error handling
//
// Every operation returns either a value or one error from a small taxonomy:
// *TransportError for failed exchanges, *StatusError for non-2xx responses,
// *DecodeError for malformed success bodies, and sentinel errors such as
// ErrNotFound, ErrUnauthorized and ErrInvalidPage. *StatusError matches the
// sentinels through errors.Is, so callers can branch without inspecting raw
// status codes:
//
//	demo, err := client.Get(ctx, 9)
//	if errors.Is(err, demostf.ErrNotFound) {
//		// no such demo
//	}
package demostf
