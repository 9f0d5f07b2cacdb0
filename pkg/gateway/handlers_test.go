package gateway

import (
	"testing"

	"github.com/aeolun/teamline/pkg/notify"
	"github.com/aeolun/teamline/pkg/protocol"
)

func TestTypingFansOutToOtherMembersOnly(t *testing.T) {
	st := newMockStore()
	st.members[42] = []int64{1, 2}
	s := testServer(t, st, nil)

	actorConn, actorSock := connect(s, 1)
	_, secondDeviceSock := connect(s, 1)
	_, memberSock := connect(s, 2)

	env := mustEnvelope(t, protocol.TypeTyping, protocol.Typing{ConversationID: 42, IsTyping: true})
	s.handleEnvelope(Identity{UserID: 1}, actorConn, env)

	if got := len(memberSock.framesOfType(protocol.TypeTyping)); got != 1 {
		t.Errorf("other member should receive the typing event, got %d", got)
	}
	if got := len(actorSock.framesOfType(protocol.TypeTyping)); got != 0 {
		t.Errorf("actor device should not receive its own typing event, got %d", got)
	}
	if got := len(secondDeviceSock.framesOfType(protocol.TypeTyping)); got != 0 {
		t.Errorf("actor's other device should not receive the typing event, got %d", got)
	}

	var payload protocol.Typing
	if err := memberSock.framesOfType(protocol.TypeTyping)[0].DecodeData(&payload); err != nil {
		t.Fatalf("failed to decode typing event: %v", err)
	}
	if payload.UserID != 1 {
		t.Errorf("typing event should carry the actor id, got %d", payload.UserID)
	}
}

func TestTypingRejectsNonMember(t *testing.T) {
	st := newMockStore()
	st.members[42] = []int64{2, 3}
	s := testServer(t, st, nil)

	outsiderConn, outsiderSock := connect(s, 1)
	_, memberSock := connect(s, 2)

	env := mustEnvelope(t, protocol.TypeTyping, protocol.Typing{ConversationID: 42, IsTyping: true})
	s.handleEnvelope(Identity{UserID: 1}, outsiderConn, env)

	errFrames := outsiderSock.framesOfType(protocol.TypeError)
	if len(errFrames) != 1 {
		t.Fatalf("outsider should get exactly one error frame, got %d", len(errFrames))
	}
	var frame protocol.ErrorFrame
	if err := errFrames[0].DecodeData(&frame); err != nil {
		t.Fatalf("failed to decode error frame: %v", err)
	}
	if frame.Code != protocol.ErrCodeNotMember {
		t.Errorf("expected %s, got %s", protocol.ErrCodeNotMember, frame.Code)
	}
	if memberSock.frameCount() != 0 {
		t.Errorf("refused event must not reach any member, got %d frames", memberSock.frameCount())
	}
}

func TestNewMessageEchoesToEveryDeviceAndPushesOffline(t *testing.T) {
	st := newMockStore()
	st.members[42] = []int64{1, 2, 3}
	notifier := newRecordingNotifier()
	s := testServer(t, st, notifier)

	actorConn, actorSock := connect(s, 1)
	_, secondDeviceSock := connect(s, 1)
	_, memberSock := connect(s, 2)
	// user 3 stays offline

	env := mustEnvelope(t, protocol.TypeNewMessage, protocol.NewMessage{ConversationID: 42, Content: "hello"})
	s.handleEnvelope(Identity{UserID: 1}, actorConn, env)

	for name, sock := range map[string]*fakeSocket{
		"actor device":        actorSock,
		"actor second device": secondDeviceSock,
		"other member":        memberSock,
	} {
		if got := len(sock.framesOfType(protocol.TypeNewMessage)); got != 1 {
			t.Errorf("%s should receive the message once, got %d", name, got)
		}
	}

	if notifier.count(3) != 1 {
		t.Errorf("offline member should get a push notification, got %d", notifier.count(3))
	}
	if len(st.messages) != 1 {
		t.Fatalf("message should be persisted, got %d rows", len(st.messages))
	}

	var payload protocol.MessageEvent
	if err := memberSock.framesOfType(protocol.TypeNewMessage)[0].DecodeData(&payload); err != nil {
		t.Fatalf("failed to decode message event: %v", err)
	}
	if payload.MessageID != st.messages[0].ID {
		t.Errorf("broadcast should reference the stored message, got id %d", payload.MessageID)
	}
}

func TestNewMessageRejectsEmptyContent(t *testing.T) {
	st := newMockStore()
	st.members[42] = []int64{1}
	s := testServer(t, st, nil)

	conn, sock := connect(s, 1)

	env := mustEnvelope(t, protocol.TypeNewMessage, protocol.NewMessage{ConversationID: 42})
	s.handleEnvelope(Identity{UserID: 1}, conn, env)

	errFrames := sock.framesOfType(protocol.TypeError)
	if len(errFrames) != 1 {
		t.Fatalf("expected one error frame, got %d", len(errFrames))
	}
	var frame protocol.ErrorFrame
	if err := errFrames[0].DecodeData(&frame); err != nil {
		t.Fatalf("failed to decode error frame: %v", err)
	}
	if frame.Code != protocol.ErrCodeInvalidPayload {
		t.Errorf("expected %s, got %s", protocol.ErrCodeInvalidPayload, frame.Code)
	}
	if len(st.messages) != 0 {
		t.Error("invalid message must not be persisted")
	}
}

func TestMessageEditedFansOutIncludingActor(t *testing.T) {
	st := newMockStore()
	st.members[42] = []int64{1, 2}
	s := testServer(t, st, nil)

	actorConn, actorSock := connect(s, 1)
	_, memberSock := connect(s, 2)

	original, err := st.InsertMessage(42, 1, "first draft")
	if err != nil {
		t.Fatalf("seed message failed: %v", err)
	}

	env := mustEnvelope(t, protocol.TypeMessageEdited, protocol.MessageEdited{
		ConversationID: 42,
		MessageID:      original.ID,
		Content:        "final version",
	})
	s.handleEnvelope(Identity{UserID: 1}, actorConn, env)

	for name, sock := range map[string]*fakeSocket{
		"actor":        actorSock,
		"other member": memberSock,
	} {
		edits := sock.framesOfType(protocol.TypeMessageEdited)
		if len(edits) != 1 {
			t.Fatalf("%s should receive the edit, got %d frames", name, len(edits))
		}
		var payload protocol.MessageEvent
		if err := edits[0].DecodeData(&payload); err != nil {
			t.Fatalf("failed to decode edit event: %v", err)
		}
		if payload.Content != "final version" {
			t.Errorf("%s should see the new content, got %q", name, payload.Content)
		}
	}
}

func TestIncomingCallRingsOtherMembers(t *testing.T) {
	st := newMockStore()
	st.members[42] = []int64{1, 2, 3}
	notifier := newRecordingNotifier()
	s := testServer(t, st, notifier)

	actorConn, actorSock := connect(s, 1)
	_, memberSock := connect(s, 2)
	// user 3 stays offline

	env := mustEnvelope(t, protocol.TypeIncomingCall, protocol.IncomingCall{
		ConversationID: 42,
		CallType:       protocol.CallKindVideo,
	})
	s.handleEnvelope(Identity{UserID: 1}, actorConn, env)

	rings := memberSock.framesOfType(protocol.TypeIncomingCall)
	if len(rings) != 1 {
		t.Fatalf("online member should be rung once, got %d", len(rings))
	}
	if got := len(actorSock.framesOfType(protocol.TypeIncomingCall)); got != 0 {
		t.Errorf("caller must not ring themselves, got %d", got)
	}
	if notifier.count(3) != 1 {
		t.Errorf("offline member should get a push, got %d", notifier.count(3))
	}

	var payload protocol.CallEvent
	if err := rings[0].DecodeData(&payload); err != nil {
		t.Fatalf("failed to decode call event: %v", err)
	}
	if payload.CallID == "" || payload.RoomID == "" {
		t.Error("ring should carry the allocated call and room ids")
	}
	if len(st.calls) != 1 {
		t.Errorf("call should be persisted, got %d", len(st.calls))
	}
}

func TestInviteToCallWarnsAboutUnreachableTargets(t *testing.T) {
	st := newMockStore()
	st.members[42] = []int64{1, 2}
	notifier := newRecordingNotifier()
	notifier.err = notify.ErrNoSubscriptions
	s := testServer(t, st, notifier)

	actorConn, actorSock := connect(s, 1)

	convID := int64(42)
	call, err := s.calls.Start(1, &convID, protocol.CallKindAudio)
	if err != nil {
		t.Fatalf("failed to start call: %v", err)
	}

	env := mustEnvelope(t, protocol.TypeInviteToCall, protocol.InviteToCall{
		CallID:    call.ID,
		TargetIDs: []int64{7},
	})
	s.handleEnvelope(Identity{UserID: 1}, actorConn, env)

	warnings := actorSock.framesOfType(protocol.TypeCallInviteDropped)
	if len(warnings) != 1 {
		t.Fatalf("inviter should get one undelivered warning, got %d", len(warnings))
	}
	var payload protocol.CallInviteDropped
	if err := warnings[0].DecodeData(&payload); err != nil {
		t.Fatalf("failed to decode warning: %v", err)
	}
	if len(payload.TargetIDs) != 1 || payload.TargetIDs[0] != 7 {
		t.Errorf("warning should name the unreachable target, got %v", payload.TargetIDs)
	}
	if got := len(actorSock.framesOfType(protocol.TypeError)); got != 0 {
		t.Errorf("undelivered invite is a warning, not an error, got %d error frames", got)
	}
}

func TestCallSignalRelayedToOtherMembers(t *testing.T) {
	st := newMockStore()
	st.members[42] = []int64{1, 2}
	s := testServer(t, st, nil)

	actorConn, actorSock := connect(s, 2)
	_, hostSock := connect(s, 1)

	env := mustEnvelope(t, protocol.TypeCallAnswered, protocol.CallSignal{
		ConversationID: 42,
		CallID:         "call-1",
	})
	s.handleEnvelope(Identity{UserID: 2}, actorConn, env)

	answers := hostSock.framesOfType(protocol.TypeCallAnswered)
	if len(answers) != 1 {
		t.Fatalf("host should receive the answer, got %d", len(answers))
	}
	var payload protocol.CallEvent
	if err := answers[0].DecodeData(&payload); err != nil {
		t.Fatalf("failed to decode call event: %v", err)
	}
	if payload.FromUserID != 2 {
		t.Errorf("relay should carry the answering user, got %d", payload.FromUserID)
	}
	if got := len(actorSock.framesOfType(protocol.TypeCallAnswered)); got != 0 {
		t.Errorf("answerer must not receive their own signal, got %d", got)
	}
}
