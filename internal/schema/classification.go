// Package schema holds the static knowledge about permit application
// fields: which fields share special handling, how address blocks expand,
// and the column layout the downstream permit tracking system imports.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Category groups fields that are transformed the same way.
type Category int

const (
	// Uncategorized fields are sanitized text.
	Uncategorized Category = iota
	StateFields
	StreetSuffix
	BuildingUse
	OccupancyCode
	ConstructionType
	FireRating
	PhoneFields
	AppNumFields
)

var categoryNames = map[Category]string{
	Uncategorized:    "uncategorized",
	StateFields:      "state",
	StreetSuffix:     "street_suffix",
	BuildingUse:      "building_use",
	OccupancyCode:    "occupancy_code",
	ConstructionType: "construction_type",
	FireRating:       "fire_rating",
	PhoneFields:      "phone",
	AppNumFields:     "appnum",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// UsesValueMap reports whether fields in the category are translated
// through a reference table.
func (c Category) UsesValueMap() bool {
	switch c {
	case StateFields, StreetSuffix, BuildingUse, OccupancyCode, ConstructionType, FireRating:
		return true
	}
	return false
}

// ValueMapCategories lists every category backed by a reference table.
func ValueMapCategories() []Category {
	return []Category{StateFields, StreetSuffix, BuildingUse, OccupancyCode, ConstructionType, FireRating}
}

// Classification assigns fields to categories. A field belongs to at most
// one category.
type Classification struct {
	members map[Category][]string
	index   map[string]Category
}

// NewClassification builds a classification and rejects any field listed
// under more than one category.
func NewClassification(members map[Category][]string) (*Classification, error) {
	c := &Classification{
		members: make(map[Category][]string, len(members)),
		index:   make(map[string]Category),
	}

	var conflicts []string
	cats := make([]Category, 0, len(members))
	for cat := range members {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	for _, cat := range cats {
		if cat == Uncategorized {
			return nil, fmt.Errorf("schema: fields cannot be assigned to %s", cat)
		}
		fields := members[cat]
		c.members[cat] = append([]string(nil), fields...)
		for _, f := range fields {
			if prev, ok := c.index[f]; ok {
				conflicts = append(conflicts, fmt.Sprintf("%s (%s, %s)", f, prev, cat))
				continue
			}
			c.index[f] = cat
		}
	}

	if len(conflicts) > 0 {
		return nil, fmt.Errorf("schema: fields in more than one category: %s", strings.Join(conflicts, "; "))
	}
	return c, nil
}

// DefaultClassification returns the field grouping for permit applications.
func DefaultClassification() (*Classification, error) {
	return NewClassification(defaultMembers)
}

// CategoryOf returns the category of field, or Uncategorized.
func (c *Classification) CategoryOf(field string) Category {
	return c.index[field]
}

// Fields returns the fields assigned to cat.
func (c *Classification) Fields(cat Category) []string {
	return append([]string(nil), c.members[cat]...)
}

var defaultMembers = map[Category][]string{
	StateFields: {
		"Page2State",
		"ownerState",
		"constructionLenderState",
		"existingBuildingState",
		"constructionLenderState1",
		"applicantState",
	},
	StreetSuffix: {
		"projectAddressStreetType",
	},
	BuildingUse: {
		"existingBuildingPresentUse",
		"proposedUse",
		"newBuildingUse",
	},
	OccupancyCode: {
		"existingBuildingOccupancyClass",
		"occupancyClass",
		"newOccupancyClass",
	},
	ConstructionType: {
		"existingBuildingConstructionType",
		"typeOfConstruction",
		"newTypeOfConstruction",
	},
	PhoneFields: {
		"applicantPhoneNumber",
		"ownerPhoneNumber",
	},
	AppNumFields: {
		"buildingPermitApplicationNumber",
	},
}
