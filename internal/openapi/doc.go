// Package openapi loads API documents and builds their endpoint index.
//
// Documents are read from a file or an http(s) URL with kin-openapi, which
// resolves every $ref. Swagger 2.0 input is upgraded with openapi2conv.
// Anything declaring an OpenAPI major version below 3 is rejected with a
// SCHEMA_ERROR.
//
// BuildIndex gives every operation a stable endpoint id (the operationId when
// it is unique in the document, "<METHOD> <path>" otherwise) and refuses
// documents where two operations would share an id.
//
// Lookup resolves RFC 6901 JSON pointers over a document converted with
// ToJSONTree.
package openapi
