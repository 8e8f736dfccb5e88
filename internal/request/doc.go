// Package request models a single maevexctl invocation.
//
// Command-line arguments are positional key=value tokens in any order
// (urn=SV2Dec uri=192.168.1.20 username=admin password=secret op=download).
// Parse turns the raw tokens into a Request, collecting per-token
// diagnostics without aborting, and Validate enforces that the four
// required fields are present before any network activity happens.
package request
