// Package registry loads every configured API and serves case-insensitive
// lookups of APIs and their endpoints.
//
// Documents are fetched concurrently with an errgroup. A Registry is never
// mutated after Load returns; configuration reloads build a new one.
package registry
