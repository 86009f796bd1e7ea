// Package singer writes the tap's output as Singer messages.
//
// Every message is one JSON object per line:
//
//	{"type":"SCHEMA","stream":"issues","schema":{...},"key_properties":["id"],"bookmark_properties":["updated_at"]}
//	{"type":"RECORD","stream":"issues","record":{...},"time_extracted":"2024-03-01T12:00:00Z"}
//	{"type":"STATE","value":{"bookmarks":{"issues":{"partitions":[...]}}}}
//
// STATE messages carry the complete state accumulated during the run, so the
// last one emitted can be fed back to resume.
package singer
