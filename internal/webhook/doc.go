// Package webhook implements the catch-all Hookdeck webhook intake endpoint.
//
// Every POST under the mount point is accepted regardless of path, so several
// simulated webhook endpoints can share one listener without route changes.
//
// # Request Flow
//
//  1. HTTP POST arrives at any path
//  2. Body read with a size cap (413 if too large)
//  3. Receipt time and the pretty-printed body are logged
//  4. x-hookdeck-signature / x-hookdeck-signature-2 checked against the
//     base64 HMAC-SHA256 of the raw body
//  5. 202 {"status":"ACCEPTED"} or 403 {"status":"UNAUTHORIZED"}
//
// Nothing is persisted or forwarded.
//
// # Example Usage
//
//	verifier := signature.New(os.Getenv("HOOKDECK_WEBHOOK_SECRET"), signature.PolicyReject, logger)
//	h := webhook.New(webhook.Config{MaxBodySize: webhook.DefaultMaxBodySize}, verifier, logger)
//	r := chi.NewRouter()
//	h.Mount(r)
package webhook
