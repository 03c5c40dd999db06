package mcp

// mimeTypeForID returns the MIME type for a vault node's id. Every node
// in the graph is a markdown file, so this is constant; it exists as a
// named lookup so resource responses don't hardcode the literal.
func mimeTypeForID(string) string {
	return "text/markdown"
}
