package request

import (
	"fmt"
	"strings"
)

// URN identifies the Maevex appliance family a request targets.
// The zero value means the family was never supplied (or not recognized),
// which fails validation.
type URN string

const (
	// URNUnknown is the unset default
	URNUnknown URN = ""

	// URNMaevex1 targets first-generation Maevex encoder appliances
	URNMaevex1 URN = "Maevex1"

	// URNSV2 targets SV2 encoder appliances
	URNSV2 URN = "SV2"

	// URNSV2Dec targets SV2 decoder appliances
	URNSV2Dec URN = "SV2Dec"
)

// IsDecoder reports whether the URN names a decoder appliance family
func (u URN) IsDecoder() bool {
	return u == URNSV2Dec
}

// Op selects which operation the run performs against the appliance
type Op string

const (
	// OpDownload downloads one recording from the appliance's local storage
	OpDownload Op = "download"

	// OpDelete deletes all local-storage recordings and renames the appliance
	OpDelete Op = "delete"
)

// Request is a fully parsed invocation. It is immutable once validated;
// the orchestration sequence only reads it.
type Request struct {
	// URN is the appliance family (Maevex1, SV2, SV2Dec)
	URN URN

	// URI is the canonical host literal (IPv6 literals stay bracketed)
	URI string

	// Username for appliance authentication
	Username string

	// Password for appliance authentication
	Password string

	// Op is the operation to run (defaults to download)
	Op Op

	// File is the remote recording to download. Empty means the first
	// completed recording found in the appliance's local storage.
	File string

	// OutputDir is the local destination directory for downloads.
	// Empty means the preference/default directory.
	OutputDir string
}

// Parse converts raw command-line tokens into a Request.
//
// Each token is trimmed and split on the first '='. Tokens that do not
// split into exactly two parts and tokens with unrecognized keys are
// reported in the returned diagnostics and skipped; parsing never aborts.
// Keys are case-insensitive and later duplicates overwrite earlier values.
// An unrecognized urn value leaves the URN unset without a diagnostic,
// which is caught by Validate instead.
func Parse(args []string) (*Request, []string) {
	req := &Request{Op: OpDownload}
	var diags []string

	for _, raw := range args {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}

		key, value, ok := strings.Cut(token, "=")
		if !ok {
			diags = append(diags, fmt.Sprintf("invalid argument %q: expected key=value", token))
			continue
		}

		switch strings.ToLower(key) {
		case "urn":
			req.URN = parseURN(value)
		case "uri":
			req.URI = NormalizeHost(value)
		case "username":
			req.Username = value
		case "password":
			req.Password = value
		case "op":
			op, err := parseOp(value)
			if err != nil {
				diags = append(diags, err.Error())
				continue
			}
			req.Op = op
		case "file":
			req.File = value
		case "out":
			req.OutputDir = value
		default:
			diags = append(diags, fmt.Sprintf("unknown key %q in argument %q", key, token))
		}
	}

	return req, diags
}

// parseURN matches a urn value case-insensitively against the recognized
// family literals. Anything else maps to URNUnknown, silently.
func parseURN(value string) URN {
	switch strings.ToUpper(value) {
	case "MAEVEX1":
		return URNMaevex1
	case "SV2":
		return URNSV2
	case "SV2DEC":
		return URNSV2Dec
	default:
		return URNUnknown
	}
}

func parseOp(value string) (Op, error) {
	switch strings.ToLower(value) {
	case "download":
		return OpDownload, nil
	case "delete":
		return OpDelete, nil
	default:
		return "", fmt.Errorf("unknown op %q: expected download or delete", value)
	}
}

// NormalizeHost canonicalizes a host literal for URL construction.
//
// Surrounding brackets are stripped first; if the remaining literal
// contains a colon it is treated as an IPv6 address and re-bracketed.
// A bracketed IPv4 literal therefore comes out unbracketed:
//
//	[fe80::1]    -> [fe80::1]
//	192.168.0.1  -> 192.168.0.1
//	[192.168.0.1] -> 192.168.0.1
func NormalizeHost(host string) string {
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}
