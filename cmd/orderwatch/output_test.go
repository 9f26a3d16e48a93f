package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/orderwatch/internal/poller"
)

func TestWriteStructured(t *testing.T) {
	v := map[string]any{"id": "ord_1", "quantity": 2}

	var buf bytes.Buffer
	done, err := writeStructured(&buf, "yaml", v)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "id: ord_1\nquantity: 2\n", buf.String())

	buf.Reset()
	done, err = writeStructured(&buf, "JSON", v)
	require.NoError(t, err)
	assert.True(t, done)
	assert.JSONEq(t, `{"id":"ord_1","quantity":2}`, buf.String())

	buf.Reset()
	done, err = writeStructured(&buf, "table", v)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Zero(t, buf.Len())

	_, err = writeStructured(&buf, "xml", v)
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 2, exitCode(poller.State{Phase: poller.PhaseSettled}))
	assert.Equal(t, 3, exitCode(poller.State{Phase: poller.PhaseTimedOut}))
	assert.Equal(t, 4, exitCode(poller.State{Phase: poller.PhaseErrored}))
	assert.Equal(t, 130, exitCode(poller.State{Phase: poller.PhasePolling}))
}

func TestFirstPositive(t *testing.T) {
	assert.Equal(t, 3*time.Second, firstPositive(0, -time.Second, 3*time.Second, time.Minute))
	assert.Zero(t, firstPositive())
}
