package chat

import (
	"context"
	"fmt"

	"github.com/poiesic/parley/core"
)

// InitiateCall starts a call between two members of a conversation.
func (s *Service) InitiateCall(ctx context.Context, conversationID, callerID, calleeID core.ID) (*core.CallSession, error) {
	for _, id := range []core.ID{callerID, calleeID} {
		if _, err := s.requireMember(ctx, conversationID, id); err != nil {
			return nil, err
		}
	}
	call, err := s.calls.Save(ctx, &core.CallSession{
		ConversationId: conversationID,
		CallerId:       callerID,
		CalleeId:       calleeID,
		Status:         core.CallStatusInitiated,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("call initiated", "call", call.Id, "conversation", conversationID)
	return call, nil
}

// TransitionCall moves a call to next. Calls move forward one step at a
// time and may end from any state; an ended call cannot change. Ending a
// call stamps EndedAt.
func (s *Service) TransitionCall(ctx context.Context, callID core.ID, next core.CallStatus) (*core.CallSession, error) {
	if err := core.ValidateCallStatus(next); err != nil {
		return nil, err
	}
	call, err := s.calls.FindByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, fmt.Errorf("%w: call %s", ErrNotFound, callID)
	}
	if !call.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s to %s", core.ErrInvalidTransition, call.Status, next)
	}
	call.Status = next
	if next == core.CallStatusEnded {
		now := core.Now()
		call.EndedAt = &now
	}
	return s.calls.Save(ctx, call)
}

// CallHistory returns the calls of a conversation, oldest first.
func (s *Service) CallHistory(ctx context.Context, conversationID core.ID) ([]*core.CallSession, error) {
	return s.calls.FindByConversationID(ctx, conversationID)
}
