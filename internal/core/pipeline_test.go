package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/permits/internal/anomaly"
	"github.com/JonMunkholm/permits/internal/schema"
)

func TestTransformFixture(t *testing.T) {
	rec := &anomaly.Recorder{}
	batch := newPipeline(t, rec).Transform(context.Background(), loadFixture(t))

	require.Len(t, batch.Records, 2)
	require.Len(t, batch.Excluded, 3)
	assert.Equal(t, 3, rec.Count(anomaly.Exclusion))

	first := batch.Records[0]
	want := map[string]string{
		"id":                               "5f3a9c0e1d2b4a0017c1a001",
		"created":                          "2020-08-17 09:54:48 AM",
		"permitType":                       "alterations",
		"applicationNumber":                "123456789",
		"bluebeamId":                       "987-654",
		"projectAddressStreetName":         "South Van Ness",
		"projectAddressStreetType":         "AV",
		"applicantPhoneNumber":             "4155084155",
		"applicantAddress1":                "1 Main St",
		"applicantAddress2":                "",
		"applicantState":                   "CA",
		"contractorState":                  "CA",
		"ownerPhoneNumber":                 "4155550100",
		"existingBuildingPresentUse":       "27,25",
		"existingBuildingOccupancyClass":   "R-2",
		"existingBuildingConstructionType": "3",
		"existingBuildingFireRating":       "A",
		"proposedUse":                      "27,28,26",
		"typeOfConstruction":               "5",
		"proposedFireRating":               "B",
		"estimatedCostOfProject":           "125000",
		"projectDescription":               "Replace windows and doors",
		"sitePermit":                       "Y",
		"historicBuilding":                 "N",
		"planningApproval":                 "Y",
		"requiredUploads":                  "plans.pdf, calcs.pdf",
		"optionalUploads":                  "",
	}
	for col, v := range want {
		got, ok := first.Get(col)
		assert.True(t, ok, "column %s", col)
		assert.Equal(t, v, got, "column %s", col)
	}

	second := batch.Records[1]
	for col, v := range map[string]string{
		"proposedUse":              "24",
		"occupancyClass":           "R-3",
		"typeOfConstruction":       "5",
		"proposedFireRating":       "A",
		"proposedStories":          "2",
		"projectAddressStreetType": "",
		"ownerAddress1":            "2 Elm St",
		"ownerState":               "OR",
	} {
		got, _ := second.Get(col)
		assert.Equal(t, v, got, "column %s", col)
	}

	statuses := map[string]string{}
	for _, ex := range batch.Excluded {
		statuses[ex.SubmissionID] = ex.Status
	}
	assert.Equal(t, map[string]string{
		"5f3a9c0e1d2b4a0017c1a003": StatusResubmission,
		"5f3a9c0e1d2b4a0017c1a004": "Failed",
		"5f3a9c0e1d2b4a0017c1a005": StatusInvalid,
	}, statuses)
}

func TestTransformCoversEveryColumn(t *testing.T) {
	batch := newPipeline(t, nil).Transform(context.Background(), loadFixture(t))

	for _, r := range batch.Records {
		assert.Equal(t, schema.Columns, r.Names())
	}
}

func TestReorderPadsMissing(t *testing.T) {
	r := ReorderTo(FlatRecord{"b": "2", "extra": "x"}, []string{"a", "b"})
	assert.Equal(t, OrderedRecord{{Name: "a", Value: ""}, {Name: "b", Value: "2"}}, r)
}

func TestBatchDelimited(t *testing.T) {
	batch := newPipeline(t, nil).Transform(context.Background(), loadFixture(t))

	feed := batch.Delimited('|')
	lines := strings.Split(strings.TrimSuffix(feed, "\r\n"), "\r\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Id|Created|Permit Type|Application Number|"))
	assert.True(t, strings.HasPrefix(lines[1], "5f3a9c0e1d2b4a0017c1a001|2020-08-17 09:54:48 AM|alterations|123456789|"))
	for _, l := range lines {
		assert.Equal(t, len(schema.Columns)-1, strings.Count(l, "|"))
		assert.NotContains(t, l, "\n")
	}
	assert.True(t, strings.HasSuffix(feed, "\r\n"))
}

func TestBatchDelimitedEmpty(t *testing.T) {
	var b Batch
	assert.Equal(t, 1, strings.Count(b.Delimited('|'), "\r\n"))
}
