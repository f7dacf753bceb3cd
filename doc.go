// Package auth is the credential and authorization layer of the conduit API:
// password hashing, token issuance and validation, the go-router authorization
// gate, and the bookkeeping that keeps article favorite counters consistent.
//
// Credentials:
//   - SetPassword derives a PBKDF2-SHA512 hash over a fresh 16 byte salt.
//     VerifyPassword recomputes and compares in constant time. Both are pure,
//     PasswordHasher bounds how many run at once so a burst of logins cannot
//     take every core.
//
// Tokens and the gate:
//   - TokenServiceImpl issues HS256 tokens carrying {id, username, exp, iat}
//     and only accepts HS256 back. Failures are ErrTokenMalformed,
//     ErrTokenExpired or ErrTokenSignatureInvalid.
//   - RequiredAuth and OptionalAuth read "Authorization: Token <jwt>". The
//     required gate answers 401 for any failure. The optional gate continues
//     anonymously, including when the token is present but invalid.
//
// Favorites:
//   - The favorites set on each User is the source of truth. Favorites
//     recomputes articles.favorites_count from the sets inside the same
//     transaction as the set change, it never increments in place.
//
// Slugs:
//   - GenerateSlug returns "<slugified title>-<6 base36 chars>". A collision
//     on the unique index is reported as a unique violation on "slug" and
//     CreateArticleHandler retries with a fresh suffix.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter for logins, registrations,
//     password changes and favorites. Sinks run best-effort (errors are
//     logged) so you can forward to a database or queue without blocking.
package auth
