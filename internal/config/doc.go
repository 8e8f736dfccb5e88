// Package config stores maevexctl user preferences and per-appliance
// metadata in a YAML file in the platform config directory
// (~/.config/maevexctl/config.yaml on Unix-like systems).
//
// The file holds things the appliances themselves do not: nicknames,
// last-seen addresses, and application preferences such as the discovery
// timeout and the default download directory. Credentials are never
// written to this file.
package config
