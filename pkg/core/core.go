// Package core provides the identity of the MCP server.
package core

// Version returns the current version of the MCP server.
func Version() string {
	return "0.0.1"
}

// Name returns the server name reported to MCP clients.
func Name() string {
	return "json-db-collection"
}
