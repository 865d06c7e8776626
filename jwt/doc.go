// Package jwt mints and verifies the HS256 access and refresh tokens.
//
// Access tokens carry sub, email, name, roles, permissions and type=access so a
// request can be authorized without a store lookup. Refresh tokens carry sub,
// email, type=refresh and a random jti; they are only honoured while the
// matching server-side session is active.
package jwt
