// Package signature verifies Hookdeck webhook signatures.
//
// Hookdeck signs every forwarded request with a base64-encoded HMAC-SHA256
// digest of the raw request body, keyed by the project's webhook secret. During
// a secret rotation two signatures are sent: the current one in
// x-hookdeck-signature and the previous one in x-hookdeck-signature-2. A
// request is authentic when the locally computed digest matches either.
//
// # Security Model
//
//   - The digest is computed over the exact bytes received, before any JSON
//     decoding or re-encoding.
//   - Both candidate signatures are compared with hmac.Equal, and both
//     comparisons always run.
//   - A missing secret rejects every request unless the deployer opts in to
//     PolicyAllow, in which case each accepted request is logged at WARN.
//   - Errors are generic so callers cannot leak why verification failed.
package signature
