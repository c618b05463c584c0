// Package tools contains MCP tool implementations for baselib.
package tools

// MIME type constant.
const MimeJSON = "application/json"
