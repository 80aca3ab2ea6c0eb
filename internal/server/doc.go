// Package server implements the MCP (Model Context Protocol) server for the
// posterize pipeline.
//
// The server exposes one editing session over JSON-RPC 2.0 so that an MCP
// client can load an image, tune posterize settings, watch the export size
// and write the result to disk.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Source:
//   - posterize_load: Load an image and render it
//
// Rendering:
//   - posterize_render: Apply settings and render now
//   - posterize_update: Apply settings and render after a quiet period
//   - posterize_estimate: Encoded export size and reduction
//
// Output:
//   - posterize_export: Write the export file
//   - posterize_save_preview: Write the preview frame as PNG
//
// Reference:
//   - posterize_palette: Current palette with coverage
//   - posterize_presets: Named presets
//   - posterize_history: Recent exports, when preferences are enabled
//
// # Settings Updates
//
// Render and update take partial settings. Fields that are absent keep their
// current value. A preset, when given, replaces all settings before the
// remaining fields are applied. Every update is clamped into range.
package server
