package cli

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecare-portal/internal/availability"
	"homecare-portal/internal/models"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "check", "slot"}, names)
}

func TestCheckSlot(t *testing.T) {
	v := availability.NewValidator(
		availability.WithLocation(time.UTC),
		availability.WithClock(func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }),
	)

	ok := checkSlot(v, "2026-03-04", "09:30", models.Availability{Days: []string{"Miércoles"}, Hours: []string{"08:00-12:00"}})
	assert.True(t, ok.OK)
	assert.Equal(t, "Miércoles", ok.Weekday)

	bad := checkSlot(v, "2026-03-05", "13:00", models.Availability{Days: []string{"Miércoles"}, Hours: []string{"08:00-12:00"}})
	assert.False(t, bad.OK)
	assert.Len(t, bad.Warnings, 2)
}

func TestSlotCommandJSON(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TIMEZONE", "UTC")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"slot", "2099-01-05", "10:00", "--hours", "08:00-12:00", "--json"})
	require.NoError(t, cmd.Execute())

	var result SlotResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.True(t, result.OK)
	assert.Equal(t, "Lunes", result.Weekday)
}

func TestCheckCommandConfigOnly(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check", "--config-only"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "config ok")
}
