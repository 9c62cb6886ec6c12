// Package auth generates participant credentials and issues the signed
// session tokens used by the control-plane API. Access tokens and
// passwords are drawn from an unambiguous alphabet; sessions are HS256
// JWTs signed with the store's persisted secret, so they survive server
// restarts.
package auth
