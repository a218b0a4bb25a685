package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/benvon/questline/internal/logger"
	"github.com/benvon/questline/internal/services/oracle"
	"go.uber.org/zap"
)

const (
	// RepairMarkerBegin opens the sentinel block in a repair response
	RepairMarkerBegin = "<<<BEGIN_JSON>>>"
	// RepairMarkerEnd closes the sentinel block in a repair response
	RepairMarkerEnd = "<<<END_JSON>>>"
)

// Shape describes the record a caller expects back from the oracle. The
// description is embedded verbatim in the repair prompt.
type Shape struct {
	Name        string
	Description string
}

// Record is implemented by wire shapes decoded from oracle output.
type Record interface {
	// Normalize coerces oracle quirks, such as the literal string "null"
	// standing in for an absent field, exactly once at the decode boundary.
	Normalize()
	// Validate checks field presence beyond what JSON decoding enforces.
	Validate() error
}

// recordPtr constrains a pointer type to implement Record over T.
type recordPtr[T any] interface {
	Record
	*T
}

// Repairer issues the single bounded repair round-trip for raw oracle output
// that fails schema validation. It never returns an error: a record that
// cannot be produced is signaled by a nil result, which callers treat as
// "no result".
type Repairer struct {
	oracle oracle.Oracle
	log    *zap.Logger
}

// NewRepairer creates a repairer. The logger may be nil.
func NewRepairer(o oracle.Oracle, log *zap.Logger) *Repairer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repairer{oracle: o, log: log}
}

// Decode validates raw oracle output against the expected shape T. On direct
// parse failure it issues exactly one repair call through the oracle, asking
// for a corrected object between the sentinel markers (or the literal token
// null when unrepairable), then re-validates. Total oracle calls per
// invocation: at most one.
func Decode[T any, PT recordPtr[T]](ctx context.Context, r *Repairer, raw string, shape Shape) *T {
	if rec := parseRecord[T, PT](raw); rec != nil {
		return rec
	}

	repaired, ok := r.repair(ctx, raw, shape)
	if !ok {
		return nil
	}

	rec := parseRecord[T, PT](repaired)
	if rec == nil {
		r.log.Debug("schema_repair_unusable",
			zap.String("shape", shape.Name),
			zap.String("repaired_preview", logger.SanitizeDebugContent(repaired)),
		)
	}
	return rec
}

// parseRecord attempts a strict decode of raw into T, tolerating non-JSON
// preamble around the object, and runs normalization and validation.
func parseRecord[T any, PT recordPtr[T]](raw string) *T {
	payload := extractJSONObject(raw)
	if payload == "" {
		return nil
	}

	var rec T
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil
	}

	ptr := PT(&rec)
	ptr.Normalize()
	if err := ptr.Validate(); err != nil {
		return nil
	}
	return &rec
}

// repair issues the single repair call. A false return means the shape is
// unrepairable: the oracle failed, the markers were absent, or the oracle
// answered null.
func (r *Repairer) repair(ctx context.Context, raw string, shape Shape) (string, bool) {
	if r.oracle == nil {
		return "", false
	}

	prompt := buildRepairPrompt(raw, shape)
	resp, err := r.oracle.Generate(ctx, prompt, oracle.GenerateOptions{})
	if err != nil {
		// A timeout or transport failure on the repair call is treated
		// identically to a validation failure.
		r.log.Debug("schema_repair_failed",
			zap.String("shape", shape.Name),
			zap.Error(err),
		)
		return "", false
	}

	content, ok := extractBetweenMarkers(resp)
	if !ok {
		r.log.Debug("schema_repair_markers_missing", zap.String("shape", shape.Name))
		return "", false
	}
	if content == "null" {
		r.log.Debug("schema_repair_declared_unrepairable", zap.String("shape", shape.Name))
		return "", false
	}
	return content, true
}

func buildRepairPrompt(raw string, shape Shape) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following text was supposed to be a JSON object of shape %q:\n\n", shape.Name)
	b.WriteString(shape.Description)
	b.WriteString("\n\nInstead, this was produced:\n\n")
	b.WriteString(raw)
	fmt.Fprintf(&b, "\n\nEmit a corrected JSON object matching the shape exactly, placed between the markers %s and %s.", RepairMarkerBegin, RepairMarkerEnd)
	fmt.Fprintf(&b, "\nIf the text cannot be repaired into that shape, emit the literal token null between the same markers.")
	b.WriteString("\nDo not emit anything else.")
	return b.String()
}

// extractBetweenMarkers pulls the substring between the sentinel markers.
func extractBetweenMarkers(s string) (string, bool) {
	start := strings.Index(s, RepairMarkerBegin)
	if start == -1 {
		return "", false
	}
	rest := s[start+len(RepairMarkerBegin):]
	end := strings.Index(rest, RepairMarkerEnd)
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// extractJSONObject trims any non-JSON preamble or trailer around the
// outermost object. Models occasionally wrap JSON in prose or code fences
// even when asked not to.
func extractJSONObject(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if raw[0] == '{' && raw[len(raw)-1] == '}' {
		return raw
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
