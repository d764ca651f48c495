package ui

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/openexpoota/ota/internal/api"
)

func newTestPrinter(format Format) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewPrinter(&out, &errOut, format), &out, &errOut
}

var testApps = []api.App{
	{ID: 1, Name: "My App", Slug: "my-app", Description: "first", CreatedAt: time.Now().Add(-2 * time.Hour)},
	{ID: 2, Name: "Other", Slug: "other"},
}

func TestParseFormat(t *testing.T) {
	testCases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "JSON", want: FormatJSON},
		{in: " yaml ", want: FormatYAML},
		{in: "xml", wantErr: true},
	}
	for _, tc := range testCases {
		got, err := ParseFormat(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestApps_Text(t *testing.T) {
	p, out, _ := newTestPrinter(FormatText)
	require.NoError(t, p.Apps(testApps))

	s := out.String()
	assert.Contains(t, s, "SLUG")
	assert.Contains(t, s, "my-app")
	assert.Contains(t, s, "2 hours ago")
	assert.Contains(t, s, "-")
}

func TestApps_Empty(t *testing.T) {
	p, out, errOut := newTestPrinter(FormatText)
	require.NoError(t, p.Apps(nil))
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "No apps found")
}

func TestApps_JSON(t *testing.T) {
	p, out, _ := newTestPrinter(FormatJSON)
	require.NoError(t, p.Apps(testApps))

	var got []api.App
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "my-app", got[0].Slug)
}

func TestApps_EmptyJSONIsArray(t *testing.T) {
	p, out, _ := newTestPrinter(FormatJSON)
	require.NoError(t, p.Apps(nil))
	assert.JSONEq(t, "[]", out.String())
}

func TestUpdates_YAML(t *testing.T) {
	p, out, _ := newTestPrinter(FormatYAML)
	updates := []api.Update{{ID: 42, Version: "1.2.0", Channel: api.ChannelStaging, RuntimeVersion: "1.0.0"}}
	require.NoError(t, p.Updates(&testApps[0], updates))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 42, got[0]["id"])
	assert.Equal(t, "staging", got[0]["channel"])
}

func TestUpdates_Text(t *testing.T) {
	p, out, _ := newTestPrinter(FormatText)
	updates := []api.Update{
		{ID: 42, Version: "1.2.0", Channel: api.ChannelProduction, RuntimeVersion: "1.0.0", IsRollback: true},
	}
	require.NoError(t, p.Updates(&testApps[0], updates))

	s := out.String()
	assert.Contains(t, s, "Updates for My App (my-app)")
	assert.Contains(t, s, "42")
	assert.Contains(t, s, "production")
	assert.Contains(t, s, "yes")
}

func TestStatusLinesMoveToStderrForData(t *testing.T) {
	p, out, errOut := newTestPrinter(FormatJSON)
	p.Successf("done %d", 1)
	p.Field("User", "octocat")
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "done 1")
	assert.Contains(t, errOut.String(), "octocat")

	p, out, _ = newTestPrinter(FormatText)
	p.Successf("done %d", 2)
	assert.Contains(t, out.String(), "done 2")
}

func TestSize(t *testing.T) {
	assert.Equal(t, "1.5 kB", Size(1500))
	assert.Equal(t, "0 B", Size(-1))
}
