package mojen_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/mojen"
)

func TestOp_String(t *testing.T) {
	tests := []struct {
		op   mojen.Op
		name string
	}{
		{mojen.OpAddNested, "add-nested"},
		{mojen.OpUpdateNested, "update-nested"},
		{mojen.OpDelete, "delete"},
		{mojen.OpSoftDelete, "soft-delete"},
		{mojen.OpRestore, "restore"},
		{mojen.Op(42), "Op(42)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.name, tt.op.String())
	}
}

func TestParseOp(t *testing.T) {
	for _, op := range mojen.Ops() {
		parsed, err := mojen.ParseOp(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, parsed)
	}
	_, err := mojen.ParseOp("unknown")
	require.Error(t, err)
	_, err = mojen.ParseOp("purge")
	require.Error(t, err)
}

func TestIsZero(t *testing.T) {
	tests := []struct {
		v    any
		zero bool
	}{
		{nil, true},
		{"", true},
		{"a", false},
		{0, true},
		{int64(0), true},
		{int64(7), false},
		{uuid.Nil, true},
		{uuid.New(), false},
		{3.5, false},
		{uint(0), true},
		{uint32(5), false},
		{int16(0), true},
		{int8(-1), false},
		{[16]byte{}, true},
		{[16]byte{1}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.zero, mojen.IsZero(tt.v), "%v", tt.v)
	}
}

func TestCondition_String(t *testing.T) {
	assert.Equal(t, "ProjectId == 1", mojen.Condition{Path: "ProjectId", Value: 1}.String())
	assert.Equal(t, "WorkTimeId ?= 1", mojen.Condition{Path: "WorkTimeId", Value: 1, Optional: true}.String())
}

type keyRow struct {
	typ string
	key any
}

func (r keyRow) TypeName() string { return r.typ }
func (r keyRow) Key() any { return r.key }
func (r keyRow) Value(string) any { return nil }

func TestVisited(t *testing.T) {
	seen := mojen.Visited{}
	assert.True(t, seen.Visit(keyRow{"Invoice", 1}))
	assert.False(t, seen.Visit(keyRow{"Invoice", 1}))
	assert.True(t, seen.Visit(keyRow{"Address", 1}), "same key of another type")
	assert.True(t, seen.Visit(keyRow{"Invoice", "1"}), "string key printing like an int key")
	assert.False(t, seen.Visit(keyRow{"Invoice", "1"}))
	assert.Len(t, seen, 3)
}
