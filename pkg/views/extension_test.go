package views

import (
	"context"
	"testing"

	"github.com/dyluth/switchboard/internal/testutil"
	"github.com/dyluth/switchboard/pkg/ami"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handleExtensionState(m *testutil.MockManager, status string) {
	m.Handle("ExtensionState", func(a ami.Record) []string {
		return []string{testutil.Response(a, "Success",
			"Message", "Extension Status",
			"Exten", a.Value("Exten"),
			"Context", a.Value("Context"),
			"Hint", "SIP/100",
			"Status", status,
		)}
	})
}

func TestExtensionStatus(t *testing.T) {
	m := testutil.StartMockManager(t)
	handleExtensionState(m, "1")
	c := m.Dial()

	status, err := NewExtension(c, "100", "office").Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusInUse, status)
	assert.Equal(t, "InUse", status.String())

	sent := m.Actions()[0]
	assert.Equal(t, "Extensionstate", sent.Value("Action"))
	assert.Equal(t, "100", sent.Value("Exten"))
	assert.Equal(t, "office", sent.Value("Context"))
}

func TestExtensionStatusNotFound(t *testing.T) {
	m := testutil.StartMockManager(t)
	handleExtensionState(m, "-1")
	c := m.Dial()

	status, err := NewExtension(c, "999", "").Status(context.Background())
	require.Error(t, err)
	assert.True(t, ami.IsNotFound(err))
	assert.Equal(t, StatusNotFound, status)

	var nf *ami.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, ami.NotFoundExtension, nf.Kind)
	assert.Equal(t, "999@default", nf.Name)
}

func TestExtensionDefaultContext(t *testing.T) {
	m := testutil.StartMockManager(t)
	handleExtensionState(m, "0")
	c := m.Dial(ami.WithDefaultContext("from-internal"))

	ext := NewExtension(c, "100", "")
	assert.Equal(t, "100@from-internal", ext.String())
	status, err := ext.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, status)
	assert.Equal(t, "from-internal", m.Actions()[0].Value("Context"))
}

func TestExtensionStatusErrors(t *testing.T) {
	t.Run("error response", func(t *testing.T) {
		m := testutil.StartMockManager(t)
		c := m.Dial()
		_, err := NewExtension(c, "100", "").Status(context.Background())
		var afe *ami.ActionFailureError
		assert.ErrorAs(t, err, &afe)
	})

	t.Run("garbled status", func(t *testing.T) {
		m := testutil.StartMockManager(t)
		handleExtensionState(m, "busy")
		c := m.Dial()
		_, err := NewExtension(c, "100", "").Status(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid status")
	})
}

func TestExtensionStatusString(t *testing.T) {
	assert.Equal(t, "Ringing", StatusRinging.String())
	assert.Equal(t, "OnHold", StatusOnHold.String())
	assert.Equal(t, "ExtensionStatus(9)", ExtensionStatus(9).String())
}
