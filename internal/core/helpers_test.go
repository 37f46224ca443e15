package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/permits/internal/anomaly"
	"github.com/JonMunkholm/permits/internal/schema"
	"github.com/JonMunkholm/permits/internal/submission"
	"github.com/JonMunkholm/permits/internal/valuemap"
)

func losAngeles(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return loc
}

func classification(t *testing.T) *schema.Classification {
	t.Helper()
	c, err := schema.DefaultClassification()
	require.NoError(t, err)
	return c
}

func newFormatter(t *testing.T, r anomaly.Reporter) *Formatter {
	t.Helper()
	values, err := valuemap.LoadDefault()
	require.NoError(t, err)
	return NewFormatter(classification(t), values, losAngeles(t), r)
}

func newPipeline(t *testing.T, r anomaly.Reporter) *Pipeline {
	t.Helper()
	return NewPipeline(NewFlattener(classification(t), r), newFormatter(t, r), r)
}

func rawFrom(t *testing.T, id, data string) submission.Raw {
	t.Helper()
	var obj submission.Object
	require.NoError(t, json.Unmarshal([]byte(data), &obj))
	return submission.Raw{ID: id, Created: "2020-08-17T16:54:48.000Z", Data: &obj}
}

func loadFixture(t *testing.T) []submission.Raw {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", "submissions.json"))
	require.NoError(t, err)
	var subs []submission.Raw
	require.NoError(t, json.Unmarshal(b, &subs))
	return subs
}
