// Package auth provides the login session used by the HTTP surface.
//
// Users are read from a JSON file of {"username","password"} records. The
// password is either an Argon2id PHC hash or, for files carried over from
// older deployments, plaintext compared in constant time.
//
// A successful login issues an HS256 JWT. Only one session exists at a
// time: each successful login supersedes the previous token.
package auth
