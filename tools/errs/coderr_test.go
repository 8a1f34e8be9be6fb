package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeOf_TaggedAndUntagged(t *testing.T) {
	req := require.New(t)

	req.Equal(CodeNotFound, CodeOf(ErrNotFound("user not found")))
	req.Equal(CodeForbidden, CodeOf(ErrForbidden("nope")))
	req.Equal(CodeValidation, CodeOf(ErrValidation("bad input")))
	req.Equal(CodeTransient, CodeOf(ErrTransient("db down", errors.New("dial tcp"))))

	// untagged errors never leak their text or a surprising code
	req.Equal(CodeTransient, CodeOf(errors.New("sql: connection reset")))
	req.Equal("internal error", MsgOf(errors.New("sql: connection reset")))
}

func TestCodeOf_SurvivesWrapping(t *testing.T) {
	req := require.New(t)

	err := Wrap(ErrNotFound("conversation not found"), "join conversation")
	req.Equal(CodeNotFound, CodeOf(err))
	req.True(IsNotFound(err))
	req.Equal("conversation not found", MsgOf(err))
}

func TestWithDetail_KeepsMsgCleanForClients(t *testing.T) {
	req := require.New(t)

	base := ErrNotFound("user not found")
	detailed := base.WithDetail("user-42")

	req.Equal("user not found: user-42", detailed.Error())
	req.Equal("user not found", MsgOf(detailed))
	req.Empty(base.Detail) // WithDetail copies, original untouched
}

func TestIs_ComparesByCode(t *testing.T) {
	req := require.New(t)

	err := ErrForbidden("not a participant")
	req.True(errors.Is(err, ErrForbidden("anything")))
	req.False(errors.Is(err, ErrNotFound("anything")))
}
