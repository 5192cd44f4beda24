// Package api holds the OpenAPI document of the dashboard HTTP API.
package api

import _ "embed"

// OpenAPISpec is myregistry.openapi.yaml, used for request validation.
//
//go:embed myregistry.openapi.yaml
var OpenAPISpec []byte
