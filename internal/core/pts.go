package core

import (
	"strings"

	"github.com/JonMunkholm/permits/internal/schema"
)

// PrepareForImport applies the permit tracking system's import rules to a
// flat record before formatting:
//
//  1. new construction applications move their "new" field group onto the
//     "proposed" columns
//  2. the two site permit questions collapse into one flag
//  3. yes/no answers become Y, N or ""
//  4. fields the import does not accept are dropped
func PrepareForImport(rec FlatRecord) FlatRecord {
	out := rec.Clone()

	if strings.TrimSpace(out[schema.NewConstructionDiscriminant]) != "" {
		for _, p := range schema.NewToProposed {
			if v, ok := out[p.From]; ok {
				out[p.To] = v
			}
		}
	}

	unifySitePermit(out)

	for _, f := range schema.YesNoFields {
		if v, ok := out[f]; ok {
			out[f] = yesNo(v)
		}
	}

	accepted := schema.AcceptedFields()
	for k := range out {
		if !accepted[k] {
			delete(out, k)
		}
	}
	return out
}

func unifySitePermit(rec FlatRecord) {
	var present bool
	unified := ""
	for _, src := range schema.SitePermitSources {
		v, ok := rec[src]
		if !ok {
			continue
		}
		present = true
		switch yesNo(v) {
		case "Y":
			unified = "Y"
		case "N":
			if unified == "" {
				unified = "N"
			}
		}
	}
	if present {
		rec[schema.SitePermitField] = unified
		return
	}
	if v, ok := rec[schema.SitePermitField]; ok {
		rec[schema.SitePermitField] = yesNo(v)
	}
}

func yesNo(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes", "true":
		return "Y"
	case "n", "no", "false":
		return "N"
	}
	return ""
}
