// Package auth issues and validates the bearer tokens that protect the
// HTTP control surface.
//
// Tokens are HS256 JWTs signed with security.jwt.secret. They carry a
// subject naming the integration and the scopes it may use; the only
// scope today is ScopeControl. When no secret is configured the HTTP
// surface is open and no tokens are issued.
package auth
