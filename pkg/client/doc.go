/*
Package client is a typed wrapper over the fleet REST API, used by the
CLI and by integration tests. Login stores the admin bearer token on the
client; every subsequent call carries it.

Errors from the server arrive as {"error": message} bodies and are
surfaced as Go errors with the method and path prefixed.
*/
package client
