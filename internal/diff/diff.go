package diff

import (
	"fmt"

	"benritz/schemadiff/internal/schema"
)

const (
	MissingInTarget = "Missing in target schema"
	MissingInSource = "Missing in source schema"
)

// Compare reports, per object name, what differs between source and
// target. Objects appear in source order followed by target-only objects.
// Fields that exist only in the target are not reported.
func Compare(source, target *schema.FormattedSchema) *schema.DifferenceReport {
	report := schema.NewDifferenceReport()

	for name, srcRec := range source.All() {
		tgtRec, ok := target.Get(name)
		if !ok {
			report.Set(name, []string{MissingInTarget})
			continue
		}
		if messages := compareRecords(srcRec, tgtRec); len(messages) > 0 {
			report.Set(name, messages)
		}
	}

	for name := range target.All() {
		if !source.Has(name) {
			report.Set(name, []string{MissingInSource})
		}
	}

	return report
}

func compareRecords(source, target *schema.Record) []string {
	var messages []string
	for field, srcVal := range source.All() {
		tgtVal, ok := target.Get(field)
		switch {
		case !ok:
			messages = append(messages, fmt.Sprintf("Field '%s' missing in target schema", field))
		case !schema.Equal(srcVal, tgtVal):
			messages = append(messages, fmt.Sprintf("Field '%s' mismatch: %s != %s",
				field, schema.Render(srcVal), schema.Render(tgtVal)))
		}
	}
	return messages
}
