package server

import "github.com/google/jsonschema-go/jsonschema"

// mustSchemaFor derives the JSON input schema for a tool's argument
// struct. Registration happens once at startup, so a bad struct is a
// programming error worth panicking on.
func mustSchemaFor[T any]() *jsonschema.Schema {
	schema, err := jsonschema.For[T](&jsonschema.ForOptions{})
	if err != nil {
		panic(err)
	}
	return schema
}
