package vmtest

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileError(t *testing.T) {
	sentinels := map[Op]error{
		OpCreate: ErrCreate,
		OpWrite:  ErrWrite,
		OpCopy:   ErrCopy,
		OpMap:    ErrMap,
		OpUnmap:  ErrUnmap,
		OpDelete: ErrDelete,
	}

	for op, sentinel := range sentinels {
		err := error(fileError(op, 3, "/d/file_3", io.ErrUnexpectedEOF))

		assert.ErrorIs(t, err, sentinel, op.String())
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, op.String())
		for other, s := range sentinels {
			if other != op {
				assert.False(t, errors.Is(err, s), "%s must not match %s", op, other)
			}
		}
	}

	err := fileError(OpDelete, 3, "/d/file_3", io.ErrUnexpectedEOF)
	assert.Equal(t, "delete file 3 (/d/file_3): unexpected EOF", err.Error())
	assert.Equal(t, "Op(9)", Op(9).String())
	assert.False(t, (&FileError{Op: Op(9)}).Is(ErrCreate))
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Field: "page-size", Value: "x"}
	assert.Equal(t, `invalid page-size "x"`, err.Error())
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.NoError(t, err.Unwrap())
}

func TestPreconditionError(t *testing.T) {
	err := &PreconditionError{Dir: "/d", Entries: 2}
	assert.Equal(t, "directory /d is not empty (2 entries)", err.Error())
	assert.ErrorIs(t, err, ErrDirectoryNotEmpty)
	assert.False(t, errors.Is(err, ErrInvalidConfig))
}

func TestState(t *testing.T) {
	assert.Equal(t, "tearing_down", StateTearingDown.String())
	assert.Equal(t, "State(99)", State(99).String())
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateHolding.Terminal())
}
