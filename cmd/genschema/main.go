// Command genschema writes a JSON-schema document describing the
// exporter's config types to docs/config.schema.json. The schema is built
// by reflection over config.Config: property names are the Go field names
// (Cgroups, Match, Path, ...), not the keys the config file uses, and the
// file's alternative value shapes (a glob string or {regex: ...}, a name
// string or {shell: ...}) are not expressed. It's invoked via
// `go generate`; the output is documentation, never imported by the
// runtime binary.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"reflect"

	"github.com/jwalton/oguz-cgroups-exporter/config"
)

type schemaNode struct {
	Type                 string                 `json:"type"`
	Properties           map[string]*schemaNode `json:"properties,omitempty"`
	Items                *schemaNode            `json:"items,omitempty"`
	AdditionalProperties bool                   `json:"additionalProperties"`
}

func fieldSchema(t reflect.Type) *schemaNode {
	switch t.Kind() {
	case reflect.Ptr:
		return fieldSchema(t.Elem())
	case reflect.Slice:
		return &schemaNode{Type: "array", Items: fieldSchema(t.Elem())}
	case reflect.Map:
		return &schemaNode{Type: "object", AdditionalProperties: true}
	case reflect.Struct:
		return structSchema(t)
	case reflect.String:
		return &schemaNode{Type: "string"}
	case reflect.Int, reflect.Int64, reflect.Int32:
		return &schemaNode{Type: "integer"}
	case reflect.Bool:
		return &schemaNode{Type: "boolean"}
	default:
		return &schemaNode{Type: "object", AdditionalProperties: true}
	}
}

func structSchema(t reflect.Type) *schemaNode {
	node := &schemaNode{Type: "object", Properties: map[string]*schemaNode{}}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		node.Properties[f.Name] = fieldSchema(f.Type)
	}
	return node
}

func main() {
	out := flag.String("out", "docs/config.schema.json", "output path for the generated schema")
	flag.Parse()

	doc := structSchema(reflect.TypeOf(config.Config{}))
	doc.AdditionalProperties = false

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Fatalf("genschema: marshal schema: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatalf("genschema: create output dir: %v", err)
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
		log.Fatalf("genschema: write %s: %v", *out, err)
	}
	log.Printf("genschema: wrote %s", *out)
}
