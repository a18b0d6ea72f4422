package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/devdag/internal/vocab"
)

func TestDefault(t *testing.T) {
	m := Default()

	fields := m.NodeDecorations[vocab.DevicePath]
	require.NotNil(t, fields)
	assert.Equal(t, []string{"DEVNAME", "DEVPATH", "DEVTYPE", "DM_NAME", "DM_UUID", "SUBSYSTEM"}, fields[FieldUdev].Args)
	assert.Contains(t, fields, FieldSysname)
	assert.Equal(t, []string{"by-path"}, fields[FieldDevlink].Args)
	assert.Equal(t, DefaultGraphTypes, m.GraphTypes)

	// the default list is not aliased
	m.GraphTypes[0] = "changed"
	assert.Equal(t, "DMPartitionGraphs", DefaultGraphTypes[0])
}

func TestMerge(t *testing.T) {
	m := Default()
	m.Merge(&Model{
		NodeDecorations: map[vocab.NodeType]map[string]*FieldSpec{
			vocab.DevicePath: {FieldSysname: {Name: FieldSysname}},
		},
		Persistent: map[string][][]string{
			AnyNodeType: {{"UDEV", "ID_SERIAL"}},
		},
	})

	fields := m.NodeDecorations[vocab.DevicePath]
	assert.Contains(t, fields, FieldUdev)
	assert.Contains(t, fields, FieldSysname)
	assert.Equal(t, [][]string{{"UDEV", "ID_SERIAL"}}, m.Persistent[AnyNodeType])
	assert.Equal(t, [][]string{{"identifier"}}, m.Persistent["WWN"])
	assert.Equal(t, DefaultGraphTypes, m.GraphTypes)

	m.Merge(&Model{GraphTypes: []string{"SpindleGraphs"}})
	assert.Equal(t, []string{"SpindleGraphs"}, m.GraphTypes)

	m.Merge(nil)
	assert.Equal(t, []string{"SpindleGraphs"}, m.GraphTypes)
}

func TestError(t *testing.T) {
	err := Errorf("conf.json", "unknown field %q", "BOGUS")
	assert.EqualError(t, err, `config conf.json: unknown field "BOGUS"`)
	assert.True(t, errors.Is(err, ErrInvalid))

	inner := errors.New("boom")
	wrapped := &Error{Msg: "parse", Err: inner}
	assert.EqualError(t, wrapped, "config: parse: boom")
	assert.ErrorIs(t, wrapped, inner)
}
