// Package schemas embeds the JSON Schemas used to validate scenario
// files before they reach the loader.
package schemas

import _ "embed"

// ScenarioSchemaJSON is the JSON Schema for scenario YAML files.
//
//go:embed scenario.schema.json
var ScenarioSchemaJSON string
