package chat

import (
	"encoding/json"
	"testing"

	"github.com/Kesh3805/job-portal/tools/errs"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	req := require.New(t)

	f, err := ParseFrame([]byte(`{"event":"typing-start","data":{"conversationId":"c1"}}`))
	req.NoError(err)
	req.Equal(EventTypingStart, f.Event)
	req.Equal("c1", f.Data["conversationId"])

	_, err = ParseFrame([]byte(`{"data":{}}`))
	req.Error(err)

	_, err = ParseFrame([]byte(`not json`))
	req.Error(err)
}

func TestEncodeFrame(t *testing.T) {
	req := require.New(t)

	raw := EncodeFrame(EventPresenceStatus, PresenceStatusPayload{UserID: "alice", IsOnline: true})
	var f Frame
	req.NoError(json.Unmarshal(raw, &f))
	req.Equal(EventPresenceStatus, f.Event)
	req.Equal("alice", f.Data["userId"])
	req.Equal(true, f.Data["isOnline"])
}

func TestBuildError_CarriesCodeAndSourceEvent(t *testing.T) {
	req := require.New(t)

	raw := BuildError(EventSendMessage, errs.ErrForbidden("not a participant"))
	var f Frame
	req.NoError(json.Unmarshal(raw, &f))
	req.Equal(EventMessageError, f.Event)
	req.EqualValues(errs.CodeForbidden, f.Data["code"])
	req.Equal("not a participant", f.Data["msg"])
	req.Equal(EventSendMessage, f.Data["event"])
}

func TestBuildError_UntaggedErrorMapsToTransient(t *testing.T) {
	req := require.New(t)

	raw := BuildError(EventMarkRead, errs.New("boom"))
	var f Frame
	req.NoError(json.Unmarshal(raw, &f))
	req.EqualValues(errs.CodeTransient, f.Data["code"])
}
