// SPDX-License-Identifier: MPL-2.0

// Package dnos drives the interactive DRIVENETS (DNOS) router CLI over a
// byte-stream transport. A Session provides expect-style primitives (send a
// line, wait for a pattern) plus a Run helper that understands the DNOS
// prompt and its ERROR: diagnostics. Transports connect either directly over
// SSH or through a user-supplied spawn command running under a local pty.
package dnos
