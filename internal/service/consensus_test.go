package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/apperr"
	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/model"
)

// A commits solo, B asks to join with warnings, A accepts; C cannot
// enter the male room; the admin then cancels A.
func TestRoommateScenario(t *testing.T) {
	for name, mk := range map[string]func(*testing.T) *fixture{"memory": newFixture, "redis": newRedisFixture} {
		t.Run(name, func(t *testing.T) {
			f := mk(t)
			ctx := context.Background()

			sel, err := f.svc.Select(ctx, sessA, "R")
			require.NoError(t, err)
			require.True(t, sel.Assigned)
			assert.Equal(t, []string{sessA}, f.occupants(t, "R"))

			sel, err = f.svc.Select(ctx, sessB, "R")
			require.NoError(t, err)
			require.False(t, sel.Assigned)
			require.NotNil(t, sel.Request)
			assert.Equal(t, model.StatusPending, sel.Request.Status)
			assert.Equal(t, model.RequestJoin, sel.Request.Kind)
			assert.Equal(t, sessA, sel.Request.TargetID)
			assert.Equal(t, []string{"You snore and they are a light sleeper"}, sel.Warnings)
			assert.Equal(t, []string{"They snore and you are a light sleeper"}, sel.Request.Warnings)
			assert.Equal(t, StateWaitingApproval, f.status(t, sessB).State)

			reqs, err := f.svc.Requests(ctx, sessA)
			require.NoError(t, err)
			require.Len(t, reqs.Incoming, 1)
			assert.Equal(t, []string{"They snore and you are a light sleeper"}, reqs.Incoming[0].Warnings)
			assert.Equal(t, "Baek", reqs.Incoming[0].RequesterName)

			acc, err := f.svc.Accept(ctx, sessA, sel.Request.ID)
			require.NoError(t, err)
			assert.Equal(t, model.StatusAccepted, acc.Status)
			assert.Equal(t, []string{sessA, sessB}, f.occupants(t, "R"))

			v, err := f.svc.RoomView(ctx, "R", sessD)
			require.NoError(t, err)
			assert.True(t, v.Full)
			assert.Zero(t, v.HeldByOthers)
			assert.Equal(t, StateAssigned, f.status(t, sessB).State)

			_, err = f.svc.Acquire(ctx, "R", sessC, 0)
			assertCode(t, apperr.ConstraintViolation, err)

			require.NoError(t, f.svc.CancelAssignment(ctx, admin, "R", sessA))
			assert.Equal(t, []string{sessB}, f.occupants(t, "R"))
			st := f.status(t, sessA)
			assert.Equal(t, StateRecovery, st.State)
			assert.True(t, st.Recovery)
			require.NotNil(t, st.Cancellation)
			assert.Equal(t, "R", st.Cancellation.RoomID)

			assert.Equal(t, []model.EventKind{
				model.EventAssignmentCommitted,
				model.EventRequestCreated,
				model.EventAssignmentCommitted,
				model.EventRequestAccepted,
				model.EventAssignmentCancelled,
			}, f.events.Kinds())
		})
	}
}

func TestSelectWithoutFrictionCommitsIntoOccupiedRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Select(ctx, sessD, "R2")
	require.NoError(t, err)
	sel, err := f.svc.Select(ctx, sessE, "R2")
	require.NoError(t, err)
	assert.True(t, sel.Assigned)
	assert.Empty(t, sel.Warnings)
	assert.Equal(t, []string{sessD, sessE}, f.occupants(t, "R2"))

	_, err = f.svc.Select(ctx, sessA, "R2")
	assertCode(t, apperr.CapacityFull, err)
}

func TestRequestJoinNeedsHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestJoin(ctx, sessB, "R")
	assertCode(t, apperr.Invalid, err)

	_, err = f.svc.Select(ctx, sessA, "R")
	require.NoError(t, err)

	_, err = f.svc.RequestJoin(ctx, sessB, "R")
	assertCode(t, apperr.Conflict, err)

	_, err = f.svc.Acquire(ctx, "R", sessB, 0)
	require.NoError(t, err)
	r, err := f.svc.RequestJoin(ctx, sessB, "R")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(10*time.Minute), r.ExpiresAt)
	assert.Equal(t, []string{"They snore and you are a light sleeper"}, r.Warnings)

	st := f.status(t, sessB)
	require.NotNil(t, st.Hold)
	assert.True(t, r.ExpiresAt.Equal(st.Hold.ExpiresAt), "hold lives as long as the request")

	_, err = f.svc.RequestJoin(ctx, sessB, "R")
	assertCode(t, apperr.Conflict, err)
}

func TestPendingRequestExpiresLazily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Select(ctx, sessA, "R")
	require.NoError(t, err)
	sel, err := f.svc.Select(ctx, sessB, "R")
	require.NoError(t, err)
	require.NotNil(t, sel.Request)

	f.clk.Advance(10 * time.Minute)

	reqs, err := f.svc.Requests(ctx, sessA)
	require.NoError(t, err)
	assert.Empty(t, reqs.Incoming)

	out, err := f.svc.Accept(ctx, sessA, sel.Request.ID)
	assertCode(t, apperr.Conflict, err)
	assert.Equal(t, model.StatusExpired, out.Status)
	assert.Equal(t, model.ReasonTimedOut, out.Reason)

	stored, err := f.svc.reqRepo.Get(ctx, sel.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, stored.Status)
	assert.Equal(t, StateNone, f.status(t, sessB).State)
	assert.Equal(t, []string{sessA}, f.occupants(t, "R"))
}

func TestInvitationExpiresWhenTargetSettlesElsewhere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Select(ctx, sessA, "R2")
	require.NoError(t, err)
	inv, err := f.svc.Invite(ctx, InviteInput{InviterID: sessA, TargetID: sessD})
	require.NoError(t, err)

	_, err = f.svc.Select(ctx, sessD, "R3")
	require.NoError(t, err)

	stored, err := f.svc.reqRepo.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, stored.Status)
	assert.Equal(t, model.ReasonTargetLeft, stored.Reason)

	out, err := f.svc.Accept(ctx, sessD, inv.ID)
	assertCode(t, apperr.Conflict, err)
	assert.Equal(t, model.StatusExpired, out.Status)
	assert.Equal(t, model.ReasonTargetLeft, out.Reason)
	assert.Equal(t, []string{sessA}, f.occupants(t, "R2"))

	v, err := f.svc.RoomView(ctx, "R2", sessE)
	require.NoError(t, err)
	assert.Zero(t, v.HeldByOthers, "the invitation's hold is gone")
}

func TestAcceptingOneInvitationExpiresTheOthers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Select(ctx, sessA, "R2")
	require.NoError(t, err)
	_, err = f.svc.Select(ctx, sessE, "R3")
	require.NoError(t, err)
	fromA, err := f.svc.Invite(ctx, InviteInput{InviterID: sessA, TargetID: sessD})
	require.NoError(t, err)
	fromE, err := f.svc.Invite(ctx, InviteInput{InviterID: sessE, TargetID: sessD})
	require.NoError(t, err)
	require.Len(t, f.status(t, sessD).Incoming, 2)

	_, err = f.svc.Accept(ctx, sessD, fromA.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{sessA, sessD}, f.occupants(t, "R2"))

	stored, err := f.svc.reqRepo.Get(ctx, fromE.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, stored.Status)
	assert.Equal(t, model.ReasonTargetLeft, stored.Reason)
	assert.Empty(t, f.status(t, sessD).Incoming)

	reqs, err := f.svc.Requests(ctx, sessE)
	require.NoError(t, err)
	assert.Nil(t, reqs.Outgoing)

	v, err := f.svc.RoomView(ctx, "R3", sessS2)
	require.NoError(t, err)
	assert.Zero(t, v.HeldByOthers)
	_, err = f.svc.Acquire(ctx, "R3", sessS2, 0)
	require.NoError(t, err)
}

func TestCancelAssignmentExpiresJoinRequestsToTheRemovedOccupant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Select(ctx, sessA, "R")
	require.NoError(t, err)
	sel, err := f.svc.Select(ctx, sessB, "R")
	require.NoError(t, err)
	require.NotNil(t, sel.Request)

	require.NoError(t, f.svc.CancelAssignment(ctx, admin, "R", sessA))

	stored, err := f.svc.reqRepo.Get(ctx, sel.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, stored.Status)
	assert.Equal(t, model.ReasonTargetLeft, stored.Reason)

	st := f.status(t, sessB)
	assert.Nil(t, st.Outgoing)
	assert.Nil(t, st.Hold)
	assert.Equal(t, StateNone, st.State)

	v, err := f.svc.RoomView(ctx, "R", sessD)
	require.NoError(t, err)
	assert.Zero(t, v.HeldByOthers)
	assert.Equal(t, 2, v.FreeSlots)
}

func TestInviteLeavesTargetsOwnHoldAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Select(ctx, sessA, "R2")
	require.NoError(t, err)
	_, err = f.svc.Acquire(ctx, "R2", sessD, 0)
	require.NoError(t, err)

	_, err = f.svc.Invite(ctx, InviteInput{InviterID: sessA, TargetID: sessD})
	assertCode(t, apperr.Conflict, err)

	v, err := f.svc.RoomView(ctx, "R2", sessD)
	require.NoError(t, err)
	assert.True(t, v.ViewerHolds)
	st := f.status(t, sessD)
	require.NotNil(t, st.Hold)
	assert.Equal(t, "R2", st.Hold.RoomID)
	assert.Empty(t, st.Incoming)
}

func TestRejectedInvitationLeavesNoDanglingHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Select(ctx, sessA, "R2")
	require.NoError(t, err)
	_, err = f.svc.Acquire(ctx, "R3", sessD, 0)
	require.NoError(t, err)
	inv, err := f.svc.Invite(ctx, InviteInput{InviterID: sessA, TargetID: sessD})
	require.NoError(t, err)

	// acquiring the invited room hands back the invitation's slot and
	// keeps the hold on R3
	h, err := f.svc.Acquire(ctx, "R2", sessD, 0)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, h.RequestID)
	st := f.status(t, sessD)
	require.NotNil(t, st.Hold)
	assert.Equal(t, "R3", st.Hold.RoomID)

	_, err = f.svc.Reject(ctx, sessD, inv.ID)
	require.NoError(t, err)

	v, err := f.svc.RoomView(ctx, "R2", sessD)
	require.NoError(t, err)
	assert.False(t, v.ViewerHolds)
	stored, err := f.svc.sessionRepo.Get(ctx, sessD)
	require.NoError(t, err)
	assert.Equal(t, "R3", stored.HeldRoomID)

	h, err = f.svc.Acquire(ctx, "R2", sessD, 0)
	require.NoError(t, err)
	assert.Empty(t, h.RequestID)
	stored, err = f.svc.sessionRepo.Get(ctx, sessD)
	require.NoError(t, err)
	assert.Equal(t, "R2", stored.HeldRoomID)
}

func TestAcceptAfterOccupantLeft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Select(ctx, sessA, "R")
	require.NoError(t, err)
	sel, err := f.svc.Select(ctx, sessB, "R")
	require.NoError(t, err)
	require.NoError(t, f.svc.CancelAssignment(ctx, admin, "R", sessA))

	_, err = f.svc.Accept(ctx, sessA, sel.Request.ID)
	assertCode(t, apperr.AssignmentCancelled, err)
	require.NoError(t, f.svc.AcknowledgeCancellation(ctx, sessA))

	out, err := f.svc.Accept(ctx, sessA, sel.Request.ID)
	assertCode(t, apperr.Conflict, err)
	assert.Equal(t, model.StatusExpired, out.Status)
	assert.Equal(t, model.ReasonTargetLeft, out.Reason)
	assert.Empty(t, f.occupants(t, "R"))
}

func TestCancelledInviterLosesInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Select(ctx, sessA, "R2")
	require.NoError(t, err)
	inv, err := f.svc.Invite(ctx, InviteInput{InviterID: sessA, TargetID: sessD})
	require.NoError(t, err)
	require.NoError(t, f.svc.CancelAssignment(ctx, admin, "R2", sessA))

	stored, err := f.svc.reqRepo.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)
	assert.Equal(t, model.ReasonRequesterLeft, stored.Reason)

	_, err = f.svc.Accept(ctx, sessD, inv.ID)
	assertCode(t, apperr.Conflict, err)
	assert.Empty(t, f.occupants(t, "R2"))
}

func TestInvitationFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Invite(ctx, InviteInput{InviterID: sessA, TargetID: sessD})
	assertCode(t, apperr.Invalid, err)

	_, err = f.svc.Select(ctx, sessA, "R2")
	require.NoError(t, err)
	f.events.Reset()

	inv, err := f.svc.Invite(ctx, InviteInput{InviterID: sessA, TargetID: sessD})
	require.NoError(t, err)
	assert.Equal(t, model.RequestInvite, inv.Kind)
	assert.Equal(t, sessD, inv.JoinerID)
	assert.Equal(t, "R2", inv.RoomID)
	assert.Empty(t, inv.Warnings)

	_, err = f.svc.Invite(ctx, InviteInput{InviterID: sessA, TargetID: sessE})
	assertCode(t, apperr.Conflict, err)

	v, err := f.svc.RoomView(ctx, "R2", sessE)
	require.NoError(t, err)
	assert.Equal(t, 1, v.HeldByOthers)
	assert.Zero(t, v.FreeSlots)
	_, err = f.svc.Acquire(ctx, "R2", sessE, 0)
	assertCode(t, apperr.AlreadyHeld, err)

	require.NoError(t, f.svc.Release(ctx, "R2", sessD))
	v, err = f.svc.RoomView(ctx, "R2", sessE)
	require.NoError(t, err)
	assert.Equal(t, 1, v.HeldByOthers, "the target cannot drop an invitation's hold")

	_, err = f.svc.Accept(ctx, sessE, inv.ID)
	assertCode(t, apperr.Forbidden, err)

	acc, err := f.svc.Accept(ctx, sessD, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, acc.Status)
	assert.Equal(t, []string{sessA, sessD}, f.occupants(t, "R2"))
	assert.Equal(t, []model.EventKind{
		model.EventInvitationCreated,
		model.EventAssignmentCommitted,
		model.EventRequestAccepted,
	}, f.events.Kinds())
	assert.Equal(t, []string{sessD}, f.events.Events()[0].Recipients)
}

func TestInviteRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Select(ctx, sessA, "R")
	require.NoError(t, err)
	_, err = f.svc.Select(ctx, sessD, "R2")
	require.NoError(t, err)

	_, err = f.svc.Invite(ctx, InviteInput{InviterID: sessA, TargetID: sessC})
	assertCode(t, apperr.ConstraintViolation, err)

	_, err = f.svc.Invite(ctx, InviteInput{InviterID: sessA, TargetID: sessD})
	assertCode(t, apperr.AlreadyAssigned, err)

	_, err = f.svc.Invite(ctx, InviteInput{InviterID: sessA, TargetID: sessA})
	assertCode(t, apperr.Invalid, err)

	_, err = f.svc.Invite(ctx, InviteInput{InviterID: sessA, TargetID: "nobody"})
	assertCode(t, apperr.NotFound, err)
}

func TestAdminInvitationCanBeCancelledByAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Select(ctx, sessA, "R2")
	require.NoError(t, err)
	inv, err := f.svc.Invite(ctx, InviteInput{InviterID: sessA, TargetID: sessE, AdminID: admin})
	require.NoError(t, err)
	assert.Equal(t, admin, inv.CreatedBy)

	assertCode(t, apperr.Forbidden, f.svc.Cancel(ctx, sessD, inv.ID))
	require.NoError(t, f.svc.Cancel(ctx, admin, inv.ID))

	stored, err := f.svc.reqRepo.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)

	reqs, err := f.svc.Requests(ctx, sessE)
	require.NoError(t, err)
	assert.Empty(t, reqs.Incoming)
}

func TestRejectAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Select(ctx, sessA, "R")
	require.NoError(t, err)
	sel, err := f.svc.Select(ctx, sessB, "R")
	require.NoError(t, err)
	id := sel.Request.ID

	_, err = f.svc.Reject(ctx, sessB, id)
	assertCode(t, apperr.Forbidden, err)

	f.events.Reset()
	out, err := f.svc.Reject(ctx, sessA, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, out.Status)
	require.Equal(t, []model.EventKind{model.EventRequestRejected}, f.events.Kinds())
	assert.Equal(t, []string{sessB}, f.events.Events()[0].Recipients)
	assert.Equal(t, StateNone, f.status(t, sessB).State, "the requester's hold went with the request")

	_, err = f.svc.Reject(ctx, sessA, id)
	assertCode(t, apperr.Conflict, err)

	// a fresh request for the same pair is allowed once the old one ended
	_, err = f.svc.Acquire(ctx, "R", sessB, 0)
	require.NoError(t, err)
	r, err := f.svc.RequestJoin(ctx, sessB, "R")
	require.NoError(t, err)

	assert.NoError(t, f.svc.Cancel(ctx, sessB, "no-such-request"))
	assertCode(t, apperr.Forbidden, f.svc.Cancel(ctx, sessD, r.ID))

	f.events.Reset()
	require.NoError(t, f.svc.Cancel(ctx, sessB, r.ID))
	assert.Empty(t, f.events.Kinds(), "cancelling notifies nobody")
	require.NoError(t, f.svc.Cancel(ctx, sessB, r.ID))

	_, err = f.svc.Accept(ctx, sessA, r.ID)
	assertCode(t, apperr.Conflict, err)
	stored, err := f.svc.reqRepo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status, "a terminal request never changes again")
	assert.Equal(t, []string{sessA}, f.occupants(t, "R"))
}

func TestReleaseCancelsPendingJoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Select(ctx, sessA, "R")
	require.NoError(t, err)
	sel, err := f.svc.Select(ctx, sessB, "R")
	require.NoError(t, err)

	require.NoError(t, f.svc.Release(ctx, "R", sessB))

	stored, err := f.svc.reqRepo.Get(ctx, sel.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)
	assert.Equal(t, model.ReasonRequesterLeft, stored.Reason)

	reqs, err := f.svc.Requests(ctx, sessA)
	require.NoError(t, err)
	assert.Empty(t, reqs.Incoming)
}

func TestCancelledSessionIsGuarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Select(ctx, sessA, "R2")
	require.NoError(t, err)
	require.NoError(t, f.svc.CancelAssignment(ctx, admin, "R2", sessA))

	_, err = f.svc.Acquire(ctx, "R3", sessA, 0)
	assertCode(t, apperr.AssignmentCancelled, err)
	_, err = f.svc.Select(ctx, sessA, "R3")
	assertCode(t, apperr.AssignmentCancelled, err)
	assert.NoError(t, f.svc.Release(ctx, "R3", sessA))

	require.NoError(t, f.svc.AcknowledgeCancellation(ctx, sessA))
	assert.Equal(t, StateNone, f.status(t, sessA).State)
	_, err = f.svc.Acquire(ctx, "R3", sessA, 0)
	require.NoError(t, err)
}
