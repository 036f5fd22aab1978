// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package geoarrow

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
)

// SchemaIPC serializes an Arrow schema as an IPC stream with no batches.
func SchemaIPC(schema *arrow.Schema) []byte {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	w.Close()
	return buf.Bytes()
}

// Describe renders one line per column: name, type and nullability, with
// JSON-text and geometry columns called out.
func Describe(schema *arrow.Schema) string {
	var b strings.Builder
	for _, f := range schema.Fields() {
		typ := arrowTypeToString(f.Type)
		if ext, ok := f.Metadata.GetValue(extensionName); ok {
			typ = ext
		} else if enc, _ := f.Metadata.GetValue(MetaEncoding); enc == "json" {
			typ = "json"
		}
		nullable := ""
		if f.Nullable {
			nullable = " (nullable)"
		}
		fmt.Fprintf(&b, "%s: %s%s\n", f.Name, typ, nullable)
	}
	return b.String()
}

// arrowTypeToString returns a human-readable type name for an Arrow type.
func arrowTypeToString(dt arrow.DataType) string {
	switch dt.ID() {
	case arrow.STRING:
		return "string"
	case arrow.INT64:
		return "int"
	case arrow.FLOAT64:
		return "float"
	case arrow.BOOL:
		return "bool"
	case arrow.BINARY:
		return "bytes"
	case arrow.TIMESTAMP:
		return "timestamp[" + dt.(*arrow.TimestampType).Unit.String() + "]"
	case arrow.LIST:
		lt := dt.(*arrow.ListType)
		return "list[" + arrowTypeToString(lt.Elem()) + "]"
	case arrow.STRUCT:
		st := dt.(*arrow.StructType)
		parts := make([]string, st.NumFields())
		for i, f := range st.Fields() {
			parts[i] = f.Name + ": " + arrowTypeToString(f.Type)
		}
		return "struct{" + strings.Join(parts, ", ") + "}"
	default:
		return dt.String()
	}
}
