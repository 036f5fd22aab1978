// © Copyright 2025-2026, Query.Farm LLC - https://query.farm
// SPDX-License-Identifier: Apache-2.0

package stac

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
)

// maxLine bounds one NDJSON record.
const maxLine = 64 << 20

// NDJSONItems reads one Item per line. Blank lines are skipped. Iteration
// stops after the first error.
func NDJSONItems(r io.Reader) iter.Seq2[*Item, error] {
	return func(yield func(*Item, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64<<10), maxLine)
		line := 0
		for sc.Scan() {
			line++
			data := bytes.TrimSpace(sc.Bytes())
			if len(data) == 0 {
				continue
			}
			doc, err := Parse(data)
			if err == nil {
				if it, ok := doc.(*Item); ok {
					if !yield(it, nil) {
						return
					}
					continue
				}
				err = structuralf("/type", "expected Feature, got %s", doc.Type())
			}
			yield(nil, fmt.Errorf("line %d: %w", line, err))
			return
		}
		if err := sc.Err(); err != nil {
			yield(nil, &Error{Kind: KindIo, Message: "reading ndjson", Err: err})
		}
	}
}

// ReadNDJSON reads every Item of an NDJSON stream.
func ReadNDJSON(r io.Reader) ([]*Item, error) {
	var items []*Item
	for it, err := range NDJSONItems(r) {
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// WriteNDJSON writes one document per line.
func WriteNDJSON[T Document](w io.Writer, docs []T) error {
	bw := bufio.NewWriter(w)
	for i, doc := range docs {
		data, err := Marshal(doc)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		bw.Write(data)
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return &Error{Kind: KindIo, Message: "writing ndjson", Err: err}
	}
	return nil
}
