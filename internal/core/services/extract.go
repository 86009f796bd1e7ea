package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

// ExtractRecords parses a response body and locates the records of a stream.
// The stream's ParseResponse hook takes precedence over RecordsPath.
func ExtractRecords(stream *domain.Stream, body []byte) ([]domain.Record, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		if stream.Hooks.ParseResponse == nil && strings.HasSuffix(stream.RecordsPath, "[*]") {
			return nil, fmt.Errorf("%w: stream %s: empty body, records container %s not found",
				domain.ErrMalformedResponse, stream.Name, stream.RecordsPath)
		}
		return nil, nil
	}
	data, err := oj.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: stream %s: %v", domain.ErrMalformedResponse, stream.Name, err)
	}
	if stream.Hooks.ParseResponse != nil {
		records, err := stream.Hooks.ParseResponse(data)
		if err != nil {
			return nil, fmt.Errorf("%w: stream %s: %w", domain.ErrMalformedResponse, stream.Name, err)
		}
		return records, nil
	}
	return extractPath(stream.Name, stream.RecordsPath, data)
}

// extractPath applies a JSONPath rule to a decoded body. An empty path
// accepts a bare array of objects or a single object. A path ending in [*]
// requires its container to exist and to be an array.
func extractPath(streamName, path string, data any) ([]domain.Record, error) {
	var items []any
	switch {
	case path == "":
		if arr, ok := data.([]any); ok {
			items = arr
		} else {
			items = []any{data}
		}
	case strings.HasSuffix(path, "[*]"):
		container, err := jp.ParseString(strings.TrimSuffix(path, "[*]"))
		if err != nil {
			return nil, fmt.Errorf("%w: stream %s: invalid records path %q: %w", domain.ErrConfiguration, streamName, path, err)
		}
		found := container.Get(data)
		if len(found) != 1 {
			return nil, fmt.Errorf("%w: stream %s: records container %s not found", domain.ErrMalformedResponse, streamName, path)
		}
		arr, ok := found[0].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: stream %s: records container %s is %T, not an array", domain.ErrMalformedResponse, streamName, path, found[0])
		}
		items = arr
	default:
		x, err := jp.ParseString(path)
		if err != nil {
			return nil, fmt.Errorf("%w: stream %s: invalid records path %q: %w", domain.ErrConfiguration, streamName, path, err)
		}
		items = x.Get(data)
	}

	records := make([]domain.Record, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: stream %s: record %d is %T, not an object", domain.ErrMalformedResponse, streamName, i, item)
		}
		records = append(records, domain.Record(obj))
	}
	return records, nil
}
