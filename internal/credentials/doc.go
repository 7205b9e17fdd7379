// Package credentials maps an API and security scheme to the environment
// variables that hold its secrets.
//
// Names are built as <API>_<SCHEME>_<SUFFIX>, each segment normalized with
// Normalize. Functions here never read os.Getenv: callers pass an Env
// captured once at startup, so tests can use synthetic environments.
package credentials
